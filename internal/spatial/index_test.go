package spatial

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"roadsim/internal/graph"
)

func TestBuildEmpty(t *testing.T) {
	if _, err := Build(nil); !errors.Is(err, ErrEmptyIndex) {
		t.Fatalf("Build(nil) error = %v, want ErrEmptyIndex", err)
	}
	var idx *Index
	if _, err := idx.Nearest(orb.Point{0, 0}); !errors.Is(err, ErrEmptyIndex) {
		t.Fatalf("nil index Nearest error = %v, want ErrEmptyIndex", err)
	}
}

func TestNearestSimple(t *testing.T) {
	idx, err := Build([]Entry{
		{Coord: orb.Point{137.00, 36.60}, Index: 4},
		{Coord: orb.Point{137.10, 36.70}, Index: 9},
		{Coord: orb.Point{137.20, 36.60}, Index: 2},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	tests := []struct {
		query orb.Point
		want  int
	}{
		{orb.Point{137.01, 36.61}, 4},
		{orb.Point{137.09, 36.69}, 9},
		{orb.Point{137.25, 36.55}, 2},
		{orb.Point{140.00, 40.00}, 9}, // outside the indexed bound
	}
	for _, tt := range tests {
		got, err := idx.Nearest(tt.query)
		if err != nil {
			t.Fatalf("Nearest(%v): %v", tt.query, err)
		}
		if got != tt.want {
			t.Errorf("Nearest(%v) = %d, want %d", tt.query, got, tt.want)
		}
	}
}

func TestNearestMatchesLinearScan(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	entries := make([]Entry, 500)
	for i := range entries {
		entries[i] = Entry{
			Coord: orb.Point{137 + rng.Float64()*0.2, 36.6 + rng.Float64()*0.2},
			Index: i,
		}
	}
	idx, err := Build(entries)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for q := 0; q < 200; q++ {
		p := orb.Point{137 + rng.Float64()*0.2, 36.6 + rng.Float64()*0.2}
		best, bestDist := -1, 0.0
		for _, e := range entries {
			d := planar.DistanceSquared(p, e.Coord)
			if best < 0 || d < bestDist {
				best, bestDist = e.Index, d
			}
		}
		got, err := idx.Nearest(p)
		if err != nil {
			t.Fatalf("Nearest: %v", err)
		}
		if d := planar.DistanceSquared(p, entries[got].Coord); d != bestDist {
			t.Fatalf("Nearest(%v) = %d (d=%v), linear scan found %d (d=%v)", p, got, d, best, bestDist)
		}
	}
}

func TestFromGraphSkipsOtherNodes(t *testing.T) {
	g, err := graph.Build([]graph.NodeRecord{
		{Id: 1, Lon: 0, Lat: 0},
		{Id: 2, Lon: 1, Lat: 0},
		{Id: 3, Lon: 5, Lat: 5},
	}, []graph.EdgeRecord{{Id: 1, N1: 1, N2: 2, Distance: 111}})
	if err != nil {
		t.Fatalf("graph.Build: %v", err)
	}

	idx, err := FromGraph(g, g.LargestComponent())
	if err != nil {
		t.Fatalf("FromGraph: %v", err)
	}
	if idx.Len() != 2 {
		t.Fatalf("Len = %d, want 2", idx.Len())
	}
	// node 3 sits exactly on the query but is not in the component
	got, err := idx.Nearest(orb.Point{5, 5})
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if got != 1 {
		t.Fatalf("Nearest = %d, want 1", got)
	}
}

func TestSingleEntry(t *testing.T) {
	idx, err := Build([]Entry{{Coord: orb.Point{1, 1}, Index: 0}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got, _ := idx.Nearest(orb.Point{-50, 80}); got != 0 {
		t.Fatalf("Nearest = %d, want 0", got)
	}
}
