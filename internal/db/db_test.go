package db

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/paulmach/orb"

	"roadsim/internal/graph"
	"roadsim/internal/planner"
	"roadsim/internal/types"
)

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	ctx := context.Background()
	store, err := Open(ctx, "sqlite", filepath.Join(t.TempDir(), "roads.db"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store.(*SQLite)
}

func fixture() ([]graph.NodeRecord, []graph.EdgeRecord, []planner.ODPair) {
	nine := 9.0
	nodes := []graph.NodeRecord{
		{Id: 1, Lon: 137.0, Lat: 36.7},
		{Id: 2, Lon: 137.001, Lat: 36.7},
		{Id: 3, Lon: 137.002, Lat: 36.7005},
	}
	edges := []graph.EdgeRecord{
		{Id: 1, N1: 1, N2: 2, Distance: 89, Width: &nine},
		{Id: 2, N1: 2, N2: 3, Distance: 99},
	}
	pairs := []planner.ODPair{
		{ID: 1, Origin: orb.Point{137.0001, 36.7}, Destination: orb.Point{137.002, 36.7004}},
	}
	return nodes, edges, pairs
}

func TestSQLiteSourceRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t)
	nodes, edges, pairs := fixture()

	if err := db.ImportRecords(ctx, nodes, edges, pairs); err != nil {
		t.Fatalf("ImportRecords: %v", err)
	}

	gotNodes, err := db.LoadNodes(ctx)
	if err != nil {
		t.Fatalf("LoadNodes: %v", err)
	}
	if !reflect.DeepEqual(gotNodes, nodes) {
		t.Fatalf("nodes = %v, want %v", gotNodes, nodes)
	}

	gotEdges, err := db.LoadEdges(ctx)
	if err != nil {
		t.Fatalf("LoadEdges: %v", err)
	}
	if !reflect.DeepEqual(gotEdges, edges) {
		t.Fatalf("edges = %+v, want %+v", gotEdges, edges)
	}
	if gotEdges[1].Width != nil {
		t.Fatalf("edge without width row loaded width %v", *gotEdges[1].Width)
	}

	gotPairs, err := db.LoadPairs(ctx)
	if err != nil {
		t.Fatalf("LoadPairs: %v", err)
	}
	if !reflect.DeepEqual(gotPairs, pairs) {
		t.Fatalf("pairs = %v, want %v", gotPairs, pairs)
	}

	g, err := LoadGraph(ctx, db)
	if err != nil {
		t.Fatalf("LoadGraph: %v", err)
	}
	if g.NodeCount() != 3 || g.EdgeCount() != 2 {
		t.Fatalf("graph has %d nodes, %d edges", g.NodeCount(), g.EdgeCount())
	}
	if g.Edges[0].Weight != 89.0/2 {
		t.Fatalf("width-9 edge weight = %v, want %v", g.Edges[0].Weight, 89.0/2)
	}
}

func TestLoadGraphRejectsDanglingEdge(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t)
	nodes, _, _ := fixture()

	// foreign keys are enforced, so the dangling edge has to bypass the table
	src := staticSource{nodes: nodes, edges: []graph.EdgeRecord{{Id: 1, N1: 1, N2: 7, Distance: 1}}}
	if _, err := LoadGraph(ctx, src); !errors.Is(err, graph.ErrNodeOutOfRange) {
		t.Fatalf("err = %v, want ErrNodeOutOfRange", err)
	}

	if err := db.ImportRecords(ctx, nodes, src.edges, nil); err == nil {
		t.Fatalf("ImportRecords accepted an edge to a missing node")
	}
}

type staticSource struct {
	nodes []graph.NodeRecord
	edges []graph.EdgeRecord
}

func (s staticSource) LoadNodes(context.Context) ([]graph.NodeRecord, error) { return s.nodes, nil }
func (s staticSource) LoadEdges(context.Context) ([]graph.EdgeRecord, error) { return s.edges, nil }
func (s staticSource) LoadPairs(context.Context) ([]planner.ODPair, error)   { return nil, nil }

func TestSQLiteSink(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t)

	runID, err := db.CreateRun(ctx, RunSimulation)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	positions := []types.AgentPosition{
		{AgentID: 0, Lon: 137.0005, Lat: 36.7},
		{AgentID: 4, Lon: 137.0015, Lat: 36.7002},
	}
	if err := db.InsertAgentPositions(ctx, runID, 3599, positions); err != nil {
		t.Fatalf("InsertAgentPositions: %v", err)
	}
	got, err := db.AgentPositions(ctx, runID, 3599)
	if err != nil {
		t.Fatalf("AgentPositions: %v", err)
	}
	if !reflect.DeepEqual(got, positions) {
		t.Fatalf("positions = %v, want %v", got, positions)
	}

	if err := db.InsertAgentPositions(ctx, "missing-run", 0, positions); err == nil {
		t.Fatalf("positions for an unknown run were accepted")
	}
}

func TestSQLitePaths(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t)
	nodes, edges, _ := fixture()

	g, err := graph.Build(nodes, edges)
	if err != nil {
		t.Fatalf("graph.Build: %v", err)
	}
	geoms := PathGeometries(g, [][]int{{0, 1, 2}, {}, {1}, {2, 1}})
	if len(geoms) != 2 {
		t.Fatalf("geometries = %d, want 2 (empty and single-node routes skipped)", len(geoms))
	}

	runID, err := db.CreateRun(ctx, RunPlanner)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := db.InsertPaths(ctx, runID, geoms); err != nil {
		t.Fatalf("InsertPaths: %v", err)
	}

	got, err := db.Paths(ctx, runID)
	if err != nil {
		t.Fatalf("Paths: %v", err)
	}
	if !reflect.DeepEqual(got, geoms) {
		t.Fatalf("paths = %v, want %v", got, geoms)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "mysql", "x", nil); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestPostgres(t *testing.T) {
	dsn := os.Getenv("ROADSIM_TEST_POSTGRES")
	if dsn == "" {
		t.Skip("ROADSIM_TEST_POSTGRES not set")
	}
	ctx := context.Background()

	store, err := Open(ctx, "postgres", dsn, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	g, err := LoadGraph(ctx, store)
	if err != nil {
		t.Fatalf("LoadGraph: %v", err)
	}
	if g.NodeCount() == 0 {
		t.Fatalf("no nodes loaded")
	}

	runID, err := store.CreateRun(ctx, RunSimulation)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := store.InsertAgentPositions(ctx, runID, 0, []types.AgentPosition{{AgentID: 1, Lon: 137, Lat: 36.7}}); err != nil {
		t.Fatalf("InsertAgentPositions: %v", err)
	}
}

func TestJSONSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roads.json")
	doc := `{
  "nodes": [{"id": 1, "lon": 137.0, "lat": 36.7}, {"id": 2, "lon": 137.001, "lat": 36.7}],
  "edges": [{"id": 1, "n1": 1, "n2": 2, "distance": 89, "width": 6}],
  "pairs": [{"id": 3, "origin_lon": 137.0, "origin_lat": 36.7, "dest_lon": 137.001, "dest_lat": 36.7001}]
}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	ctx := context.Background()
	src := JSONSource{Path: path}

	g, err := LoadGraph(ctx, src)
	if err != nil {
		t.Fatalf("LoadGraph: %v", err)
	}
	if g.NodeCount() != 2 || g.Edges[0].Weight != 89 {
		t.Fatalf("graph = %s weight %v", g, g.Edges[0].Weight)
	}

	pairs, err := src.LoadPairs(ctx)
	if err != nil {
		t.Fatalf("LoadPairs: %v", err)
	}
	want := []planner.ODPair{{ID: 3, Origin: orb.Point{137.0, 36.7}, Destination: orb.Point{137.001, 36.7001}}}
	if !reflect.DeepEqual(pairs, want) {
		t.Fatalf("pairs = %v, want %v", pairs, want)
	}

	// seed the sqlite store from the fixture
	db := openTestSQLite(t)
	nodes, _ := src.LoadNodes(ctx)
	edges, _ := src.LoadEdges(ctx)
	if err := db.ImportRecords(ctx, nodes, edges, pairs); err != nil {
		t.Fatalf("ImportRecords: %v", err)
	}
	got, err := LoadGraph(ctx, db)
	if err != nil {
		t.Fatalf("LoadGraph from sqlite: %v", err)
	}
	if !reflect.DeepEqual(got, g) {
		t.Fatalf("sqlite graph differs from JSON graph")
	}
}
