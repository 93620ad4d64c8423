// Package ranker holds the TF-IDF weighting functions and the bounded top-k
// selection used to order search hits.
package ranker

import (
	"container/heap"
	"math"
)

// ScoredDoc orders by Score descending, then DocID ascending.
type ScoredDoc struct {
	DocID uint32  `json:"doc_id"`
	Score float64 `json:"score"`
}

// TFWeight dampens a raw term frequency: log2(1 + tf).
func TFWeight(tf int) float64 {
	if tf <= 0 {
		return 0
	}
	return math.Log2(1 + float64(tf))
}

// IDF is log2(numDocs / docFreq). A term in every document weighs 0; an
// absent term weighs 0 rather than infinity.
func IDF(numDocs, docFreq int) float64 {
	if docFreq <= 0 || numDocs <= 0 {
		return 0
	}
	return math.Log2(float64(numDocs) / float64(docFreq))
}

// Better reports whether a ranks strictly ahead of b.
func Better(a, b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.DocID < b.DocID
}

// TopK keeps the k best documents pushed into it.
type TopK struct {
	k int
	h scoredDocHeap
}

func NewTopK(k int) *TopK {
	return &TopK{k: k, h: make(scoredDocHeap, 0, min(max(k, 0), 1024))}
}

func (t *TopK) Push(d ScoredDoc) {
	if t.k <= 0 {
		return
	}
	if t.h.Len() < t.k {
		heap.Push(&t.h, d)
		return
	}
	if Better(d, t.h[0]) {
		t.h[0] = d
		heap.Fix(&t.h, 0)
	}
}

// Sorted drains the collector, best first.
func (t *TopK) Sorted() []ScoredDoc {
	out := make([]ScoredDoc, t.h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&t.h).(ScoredDoc)
	}
	return out
}

// scoredDocHeap is a min-heap: the worst kept document sits at the root.
type scoredDocHeap []ScoredDoc

func (h scoredDocHeap) Len() int { return len(h) }

func (h scoredDocHeap) Less(i, j int) bool { return Better(h[j], h[i]) }

func (h scoredDocHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredDocHeap) Push(x any) {
	*h = append(*h, x.(ScoredDoc))
}

func (h *scoredDocHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
