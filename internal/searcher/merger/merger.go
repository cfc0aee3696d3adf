// Package merger selects the best k ranked results with a bounded min-heap.
package merger

import (
	"container/heap"

	"github.com/Adithya-Monish-Kumar-K/occupation-search/internal/searcher/ranker"
)

const DefaultK = 10

// TopK returns at most k results, best first. k <= 0 means DefaultK.
func TopK(results []ranker.Result, k int) []ranker.Result {
	if k <= 0 {
		k = DefaultK
	}
	h := &resultHeap{}
	heap.Init(h)
	for _, r := range results {
		heap.Push(h, r)
		if h.Len() > k {
			heap.Pop(h)
		}
	}
	out := make([]ranker.Result, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(ranker.Result)
	}
	return out
}

// Merge combines already-ranked lists and keeps the best k.
func Merge(lists [][]ranker.Result, k int) []ranker.Result {
	var all []ranker.Result
	for _, l := range lists {
		all = append(all, l...)
	}
	return TopK(all, k)
}

type resultHeap []ranker.Result

func (h resultHeap) Len() int { return len(h) }

func (h resultHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	return h[i].Code > h[j].Code
}

func (h resultHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *resultHeap) Push(x any) {
	*h = append(*h, x.(ranker.Result))
}

func (h *resultHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
