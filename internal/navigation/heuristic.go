package navigation

import (
	"github.com/paulmach/orb/geo"

	"roadsim/internal/graph"
)

// Heuristic estimates the remaining cost from node `from` to node `to`.
type Heuristic func(g *graph.Graph, from, to int) float64

// ZeroHeuristic turns A* into plain Dijkstra.
func ZeroHeuristic(*graph.Graph, int, int) float64 { return 0 }

// HaversineHeuristic divides the great-circle distance by scale. With
// graph.ByWeight a scale of 15 never overestimates, provided surveyed edge
// distances are not shorter than the straight line between their nodes.
func HaversineHeuristic(scale float64) Heuristic {
	return func(g *graph.Graph, from, to int) float64 {
		return geo.DistanceHaversine(g.Coordinate(from), g.Coordinate(to)) / scale
	}
}
