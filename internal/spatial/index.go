// Package spatial snaps arbitrary coordinates onto graph nodes.
//
// Distances are planar over raw longitude/latitude degrees. This is an
// approximation that degrades at high latitudes; movement in the simulation
// uses geodesic distance instead.
package spatial

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/quadtree"

	"roadsim/internal/graph"
)

var ErrEmptyIndex = errors.New("spatial index has no candidate nodes")

// Entry is a node index with its coordinate. It satisfies orb.Pointer so it
// can be stored in the quadtree directly.
type Entry struct {
	Coord orb.Point
	Index int
}

func (e Entry) Point() orb.Point { return e.Coord }

// Index answers nearest-node queries. It is immutable after Build.
type Index struct {
	tree *quadtree.Quadtree
	size int
}

// Build indexes the given entries.
func Build(entries []Entry) (*Index, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyIndex
	}

	points := make(orb.MultiPoint, len(entries))
	for i, e := range entries {
		points[i] = e.Coord
	}

	tree := quadtree.New(points.Bound())
	for _, e := range entries {
		if err := tree.Add(e); err != nil {
			return nil, fmt.Errorf("index node %d: %w", e.Index, err)
		}
	}
	return &Index{tree: tree, size: len(entries)}, nil
}

// FromGraph indexes the listed node indices of g, typically the largest
// connected component.
func FromGraph(g *graph.Graph, indices []int) (*Index, error) {
	entries := make([]Entry, 0, len(indices))
	for _, i := range indices {
		entries = append(entries, Entry{Coord: g.Coordinate(i), Index: i})
	}
	return Build(entries)
}

func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return idx.size
}

// Nearest returns the node index closest to p.
func (idx *Index) Nearest(p orb.Point) (int, error) {
	if idx.Len() == 0 {
		return 0, ErrEmptyIndex
	}
	found := idx.tree.Find(p)
	if found == nil {
		return 0, ErrEmptyIndex
	}
	return found.(Entry).Index, nil
}
