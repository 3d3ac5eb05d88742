package navigation

import "container/heap"

// QueueItem is an open node with its path cost and search priority
// (cost plus heuristic estimate).
type QueueItem struct {
	Node     int
	Priority float64
	Cost     float64
}

// PriorityQueue is a binary min-heap that tracks each node's heap position so
// a queued node can be re-prioritised in place.
type PriorityQueue struct {
	items []*QueueItem
	index map[int]int // node -> position in items
}

func (pq PriorityQueue) Len() int { return len(pq.items) }

// lowest priority first; equal priorities pop the lower node id first so runs
// are reproducible
func (pq PriorityQueue) Less(i, j int) bool {
	a, b := pq.items[i], pq.items[j]
	if a.Priority == b.Priority {
		return a.Node < b.Node
	}
	return a.Priority < b.Priority
}

func (pq PriorityQueue) Swap(i, j int) {
	pq.index[pq.items[i].Node] = j
	pq.index[pq.items[j].Node] = i
	pq.items[i], pq.items[j] = pq.items[j], pq.items[i]
}

func (pq *PriorityQueue) Push(x any) {
	item := x.(*QueueItem)
	pq.index[item.Node] = len(pq.items)
	pq.items = append(pq.items, item)
}

func (pq *PriorityQueue) Pop() any {
	last := len(pq.items) - 1
	item := pq.items[last]
	delete(pq.index, item.Node)
	pq.items[last] = nil
	pq.items = pq.items[:last]
	return item
}

func (pq *PriorityQueue) Contains(node int) bool {
	_, ok := pq.index[node]
	return ok
}

// Update lowers or raises a queued node and restores heap order. Unknown
// nodes are ignored.
func (pq *PriorityQueue) Update(node int, priority, cost float64) {
	i, ok := pq.index[node]
	if !ok {
		return
	}
	pq.items[i].Priority = priority
	pq.items[i].Cost = cost
	heap.Fix(pq, i)
}

func newPriorityQueue() *PriorityQueue {
	return &PriorityQueue{index: make(map[int]int)}
}
