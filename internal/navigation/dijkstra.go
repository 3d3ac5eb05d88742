package navigation

import (
	"container/heap"
	"fmt"

	"roadsim/internal/graph"
)

func noEstimate(int) float64 { return 0 }

// DistanceMap computes shortest distances from src to every reachable node.
// When target is non-nil the search stops as soon as target is settled, and
// nodes still open at that point carry their tentative distance.
func DistanceMap(g *graph.Graph, src int, target *int, w graph.WeightFunc) (map[int]float64, error) {
	if !g.HasNode(src) {
		return nil, fmt.Errorf("source %d: %w", src, ErrUnknownNode)
	}
	if target != nil && !g.HasNode(*target) {
		return nil, fmt.Errorf("target %d: %w", *target, ErrUnknownNode)
	}

	s := newSearch(g, w, src, 0)

	for s.pq.Len() > 0 {
		u := heap.Pop(s.pq).(*QueueItem).Node
		if s.closed[u] {
			continue
		}
		if target != nil && u == *target {
			break
		}
		s.closed[u] = true

		s.relaxNeighbors(u, noEstimate)
	}
	return s.gScore, nil
}
