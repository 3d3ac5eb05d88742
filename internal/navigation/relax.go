package navigation

import (
	"container/heap"

	"roadsim/internal/graph"
)

type search struct {
	g        *graph.Graph
	weight   graph.WeightFunc
	pq       *PriorityQueue
	gScore   map[int]float64
	cameFrom map[int]*graph.Edge
	closed   map[int]bool
}

func newSearch(g *graph.Graph, w graph.WeightFunc, src int, h float64) *search {
	s := &search{
		g:        g,
		weight:   w,
		pq:       newPriorityQueue(),
		gScore:   map[int]float64{src: 0},
		cameFrom: make(map[int]*graph.Edge),
		closed:   make(map[int]bool),
	}
	heap.Push(s.pq, &QueueItem{Node: src, Cost: 0, Priority: h})
	return s
}

// relaxNeighbors lowers the tentative score of every open neighbour of u
// reachable through a cheaper edge.
func (s *search) relaxNeighbors(u int, h func(v int) float64) {
	for _, edge := range s.g.GetNeighbors(u) {
		v := edge.Opposite(u)
		if s.closed[v] {
			continue
		}

		cost := s.gScore[u] + s.weight(edge)
		oldScore, exists := s.gScore[v]
		if exists && cost >= oldScore {
			continue
		}
		s.gScore[v] = cost
		s.cameFrom[v] = edge

		f := cost + h(v)
		if s.pq.Contains(v) {
			s.pq.Update(v, f, cost)
		} else {
			heap.Push(s.pq, &QueueItem{Node: v, Cost: cost, Priority: f})
		}
	}
}
