package planner

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"roadsim/internal/graph"
	"roadsim/internal/observability"
	"roadsim/internal/spatial"
)

func spanLens(spans []Span) []int {
	out := make([]int, len(spans))
	for i, s := range spans {
		out[i] = s.Len()
	}
	return out
}

func TestChunks(t *testing.T) {
	tests := []struct {
		total, workers int
		want           []int
	}{
		{17, 8, []int{3, 3, 3, 3, 3, 2, 0, 0}},
		{16, 8, []int{2, 2, 2, 2, 2, 2, 2, 2}},
		{3, 8, []int{1, 1, 1, 0, 0, 0, 0, 0}},
		{0, 4, []int{0, 0, 0, 0}},
		{10, 1, []int{10}},
		{10, 3, []int{4, 4, 2}},
		{5, 0, []int{5}},
	}
	for _, tt := range tests {
		spans := Chunks(tt.total, tt.workers)
		if got := spanLens(spans); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Chunks(%d, %d) sizes = %v, want %v", tt.total, tt.workers, got, tt.want)
		}
		// spans must tile [0, total) in order
		next := 0
		for i, s := range spans {
			if s.Start != next && s.Len() > 0 {
				t.Errorf("Chunks(%d, %d)[%d] starts at %d, want %d", tt.total, tt.workers, i, s.Start, next)
			}
			next = s.End
		}
		if tt.total > 0 && next != tt.total {
			t.Errorf("Chunks(%d, %d) ends at %d", tt.total, tt.workers, next)
		}
	}
}

func TestChunksBoundaries(t *testing.T) {
	got := Chunks(17, 8)
	want := []Span{{0, 3}, {3, 6}, {6, 9}, {9, 12}, {12, 15}, {15, 17}, {17, 17}, {17, 17}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Chunks(17, 8) = %v, want %v", got, want)
	}
}

// line: 0 - 1 - ... - n-1, plus an isolated node n
func lineGraph(t *testing.T, n int) *graph.Graph {
	t.Helper()
	nodes := make([]graph.NodeRecord, n+1)
	for i := range nodes {
		nodes[i] = graph.NodeRecord{Id: i + 1, Lon: 137 + float64(i)*0.001, Lat: 36.7}
	}
	edges := make([]graph.EdgeRecord, 0, n-1)
	for i := 1; i < n; i++ {
		edges = append(edges, graph.EdgeRecord{Id: i, N1: i, N2: i + 1, Distance: 10})
	}
	g, err := graph.Build(nodes, edges)
	if err != nil {
		t.Fatalf("graph.Build: %v", err)
	}
	return g
}

func span(from, to int) []int {
	out := []int{}
	if from <= to {
		for i := from; i <= to; i++ {
			out = append(out, i)
		}
		return out
	}
	for i := from; i >= to; i-- {
		out = append(out, i)
	}
	return out
}

func TestPlanPathsPreservesOrder(t *testing.T) {
	const n = 12
	g := lineGraph(t, n)

	var plans []Plan
	var want [][]int
	for s := 0; s < n; s++ {
		tgt := (s * 7) % n
		plans = append(plans, Plan{Source: s, Target: tgt})
		want = append(want, span(s, tgt))
	}

	p := New(g, 5)
	batch, err := p.PlanPaths(context.Background(), plans)
	if err != nil {
		t.Fatalf("PlanPaths: %v", err)
	}
	if !reflect.DeepEqual(batch.Paths, want) {
		t.Fatalf("paths = %v, want %v", batch.Paths, want)
	}
	if batch.Unrouted != 0 {
		t.Fatalf("unrouted = %d, want 0", batch.Unrouted)
	}
	if p.Progress() != int64(len(plans)) {
		t.Fatalf("progress = %d, want %d", p.Progress(), len(plans))
	}
}

func TestPlanPathsCountsUnrouted(t *testing.T) {
	const n = 4
	g := lineGraph(t, n)
	isolated := n

	reg := prometheus.NewRegistry()
	metrics, err := observability.NewPlannerCollector(reg)
	if err != nil {
		t.Fatalf("NewPlannerCollector: %v", err)
	}

	p := New(g, 8)
	p.Metrics = metrics
	batch, err := p.PlanPaths(context.Background(), []Plan{
		{Source: 0, Target: 3},
		{Source: 0, Target: isolated},
		{Source: isolated, Target: isolated},
	})
	if err != nil {
		t.Fatalf("PlanPaths: %v", err)
	}

	if batch.Unrouted != 1 {
		t.Fatalf("unrouted = %d, want 1", batch.Unrouted)
	}
	if len(batch.Paths[1]) != 0 {
		t.Fatalf("disconnected plan returned %v, want empty", batch.Paths[1])
	}
	if !reflect.DeepEqual(batch.Paths[2], []int{isolated}) {
		t.Fatalf("same-node plan returned %v", batch.Paths[2])
	}
	if got := testutil.ToFloat64(metrics.Plans.WithLabelValues("unrouted")); got != 1 {
		t.Fatalf("unrouted metric = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.Plans.WithLabelValues("routed")); got != 2 {
		t.Fatalf("routed metric = %v, want 2", got)
	}
}

func TestPlanPathsRejectsInvalidPlan(t *testing.T) {
	p := New(lineGraph(t, 3), 2)
	_, err := p.PlanPaths(context.Background(), []Plan{{Source: 0, Target: 1}, {Source: 0, Target: 99}})
	if !errors.Is(err, ErrInvalidPlan) {
		t.Fatalf("err = %v, want ErrInvalidPlan", err)
	}
	if p.Progress() != 0 {
		t.Fatalf("invalid batch processed %d plans", p.Progress())
	}
}

func TestPlanPathsEmptyBatch(t *testing.T) {
	batch, err := New(lineGraph(t, 3), 8).PlanPaths(context.Background(), nil)
	if err != nil {
		t.Fatalf("PlanPaths: %v", err)
	}
	if len(batch.Paths) != 0 || batch.Unrouted != 0 {
		t.Fatalf("batch = %+v, want empty", batch)
	}
}

func TestPlanPathsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(lineGraph(t, 5), 2).PlanPaths(ctx, []Plan{{Source: 0, Target: 4}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestPlanDistances(t *testing.T) {
	const n = 5
	g := lineGraph(t, n)

	batch, err := New(g, 3).PlanDistances(context.Background(), []Plan{
		{Source: 0, Target: 2},
		{Source: 0, Target: n},
	})
	if err != nil {
		t.Fatalf("PlanDistances: %v", err)
	}
	if got := batch.Distances[0][2]; got != 20 {
		t.Fatalf("distance 0 -> 2 = %v, want 20", got)
	}
	if _, ok := batch.Distances[0][4]; ok {
		t.Fatalf("search did not stop at target: %v", batch.Distances[0])
	}
	if batch.Unrouted != 1 {
		t.Fatalf("unrouted = %d, want 1", batch.Unrouted)
	}
	if got := len(batch.Distances[1]); got != n {
		t.Fatalf("unbounded search reached %d nodes, want %d", got, n)
	}
}

func TestSnap(t *testing.T) {
	g := lineGraph(t, 4)
	idx, err := spatial.FromGraph(g, g.LargestComponent())
	if err != nil {
		t.Fatalf("FromGraph: %v", err)
	}

	plans, err := Snap(idx, []ODPair{
		{ID: 1, Origin: orb.Point{136.9, 36.7}, Destination: orb.Point{137.0021, 36.7001}},
		// closest to the isolated node, which is not indexed
		{ID: 2, Origin: orb.Point{137.0041, 36.7}, Destination: orb.Point{137.001, 36.7}},
	})
	if err != nil {
		t.Fatalf("Snap: %v", err)
	}
	want := []Plan{{Source: 0, Target: 2}, {Source: 3, Target: 1}}
	if !reflect.DeepEqual(plans, want) {
		t.Fatalf("plans = %v, want %v", plans, want)
	}

	if _, err := Snap(&spatial.Index{}, []ODPair{{ID: 1}}); !errors.Is(err, spatial.ErrEmptyIndex) {
		t.Fatalf("Snap on empty index err = %v, want ErrEmptyIndex", err)
	}
}
