package navigation

import (
	"container/heap"
	"testing"
)

func TestPriorityQueueOrder(t *testing.T) {
	pq := newPriorityQueue()
	for id, prio := range map[int]float64{1: 5, 2: 1, 3: 3, 4: 3} {
		heap.Push(pq, &QueueItem{Node: id, Priority: prio})
	}
	pq.Update(1, 0.5, 0.5)

	var got []int
	for pq.Len() > 0 {
		got = append(got, heap.Pop(pq).(*QueueItem).Node)
	}
	want := []int{1, 2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pop order = %v, want %v", got, want)
		}
	}
	if pq.Contains(1) {
		t.Fatalf("popped node still indexed")
	}
}
