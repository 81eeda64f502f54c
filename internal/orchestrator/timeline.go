package orchestrator

import (
	"container/heap"
	"time"
)

// timelineEvent is a single scheduled action on the scenario timeline,
// ordered by timestamp with insertion order as a tie-breaker.
type timelineEvent struct {
	timestamp time.Duration
	seq       int
	action    string
	params    map[string]any
}

type timelineHeap []*timelineEvent

func (h timelineHeap) Len() int { return len(h) }
func (h timelineHeap) Less(i, j int) bool {
	if h[i].timestamp != h[j].timestamp {
		return h[i].timestamp < h[j].timestamp
	}
	return h[i].seq < h[j].seq
}
func (h timelineHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *timelineHeap) Push(x any)   { *h = append(*h, x.(*timelineEvent)) }
func (h *timelineHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

var _ = heap.Interface(&timelineHeap{})
