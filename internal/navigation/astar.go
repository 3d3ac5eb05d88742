package navigation

import (
	"container/heap"
	"fmt"
	"slices"

	"roadsim/internal/graph"
)

// FindPath runs A* from srcId to dstId. A missing path is reported through
// PathResult.Found, not as an error; only unknown node indices fail.
func FindPath(g *graph.Graph, srcId, dstId int, w graph.WeightFunc, h Heuristic) (*PathResult, error) {
	if !g.HasNode(srcId) || !g.HasNode(dstId) {
		return nil, fmt.Errorf("path %d -> %d: %w", srcId, dstId, ErrUnknownNode)
	}
	if h == nil {
		h = ZeroHeuristic
	}
	estimate := func(v int) float64 { return h(g, v, dstId) }

	s := newSearch(g, w, srcId, estimate(srcId))

	for s.pq.Len() > 0 {
		current := heap.Pop(s.pq).(*QueueItem)
		u := current.Node

		// we reached the dst node
		if u == dstId {
			route, distance := reconstructRoute(s.cameFrom, u)
			return &PathResult{
				Route:    route,
				Cost:     current.Cost,
				Distance: distance,
				Found:    true,
			}, nil
		}

		if s.closed[u] {
			continue
		}
		s.closed[u] = true

		s.relaxNeighbors(u, estimate)
	}

	return &PathResult{Route: []int{}}, nil
}

// reconstructRoute walks the predecessor edges back from current and returns
// the node sequence in travel order plus its surveyed length.
func reconstructRoute(cameFrom map[int]*graph.Edge, current int) ([]int, float64) {
	path := []int{current}
	distance := 0.0

	for {
		edge, ok := cameFrom[current]
		// no predecessor: current is the src node
		if !ok {
			break
		}
		distance += edge.Distance
		current = edge.Opposite(current)
		path = append(path, current)
	}
	slices.Reverse(path)
	return path, distance
}
