package sim

import (
	"math/rand"

	"roadsim/internal/graph"
)

// Sample draws min(n, len(paths)) paths uniformly without replacement using a
// partial Fisher-Yates shuffle over path positions. Identical rng state yields
// an identical sample.
func Sample(paths [][]int, n int, rng *rand.Rand) [][]int {
	k := min(max(n, 0), len(paths))
	order := make([]int, len(paths))
	for i := range order {
		order[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + rng.Intn(len(order)-i)
		order[i], order[j] = order[j], order[i]
	}

	sample := make([][]int, k)
	for i := 0; i < k; i++ {
		sample[i] = paths[order[i]]
	}
	return sample
}

// Routable drops empty routes, which stand for plans without a path.
func Routable(paths [][]int) [][]int {
	out := make([][]int, 0, len(paths))
	for _, p := range paths {
		if len(p) > 0 {
			out = append(out, p)
		}
	}
	return out
}

// SamplePaths picks up to n routable paths with a fresh generator seeded by
// seed, for geometry export.
func SamplePaths(paths [][]int, n int, seed int64) [][]int {
	return Sample(Routable(paths), n, rand.New(rand.NewSource(seed)))
}

// RandomWalk wanders up to steps edges from start, choosing uniformly among
// incident edges. It stops early at a node without neighbors.
func RandomWalk(g *graph.Graph, start, steps int, rng *rand.Rand) []int {
	route := []int{start}
	current := start
	for i := 0; i < steps; i++ {
		neighbors := g.GetNeighbors(current)
		if len(neighbors) == 0 {
			break
		}
		chosenEdge := neighbors[rng.Intn(len(neighbors))]
		current = chosenEdge.Opposite(current)
		route = append(route, current)
	}
	return route
}
