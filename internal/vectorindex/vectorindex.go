// Package vectorindex implements an ephemeral nearest-neighbour index built
// on demand from a collection's vectors. Distance is Euclidean (L2). Search
// is an exact (brute-force) scan with a bounded top-k selection rather than
// a true multi-layer HNSW graph — see DESIGN.md for why no pack-carried
// library covers approximate search here.
package vectorindex

import (
	"container/heap"
	"math"

	"github.com/shailendrapspundhir/aidb/internal/docstore"
)

// Index is an ephemeral, in-memory nearest-neighbour index over one
// collection's (id, vector) pairs. Not persisted; rebuild per request (or
// cache a build keyed by (collectionID, generation) — see internal/planner).
type Index struct {
	entries []docstore.VectorEntry
}

// Build constructs an Index from entries. The index holds no reference to
// the originating collection; callers key their own cache by
// (collectionID, generation) if they want to reuse a build.
func Build(entries []docstore.VectorEntry) *Index {
	cp := make([]docstore.VectorEntry, len(entries))
	copy(cp, entries)
	return &Index{entries: cp}
}

// Search returns up to k ids in ascending-distance order from query.
func (idx *Index) Search(query []float32, k int) []string {
	if k <= 0 || len(idx.entries) == 0 {
		return nil
	}

	pq := &candidateHeap{}
	heap.Init(pq)

	for _, e := range idx.entries {
		d := euclidean(query, e.Vector)
		heap.Push(pq, candidate{id: e.ID, dist: d})
		if pq.Len() > k {
			heap.Pop(pq)
		}
	}

	out := make([]string, pq.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(pq).(candidate).id
	}
	return out
}

// euclidean computes L2 distance. Vectors of mismatched length are compared
// over their shared prefix; the excess of the longer vector contributes its
// full magnitude, matching a dimension-mismatch being surfaced as distance
// rather than an error (the core has no schema enforcing equal dimension).
func euclidean(a, b []float32) float64 {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		var av, bv float32
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		diff := float64(av - bv)
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// candidate is one scored point in the bounded top-k selection. The heap is
// a max-heap on distance so the farthest current candidate is always at the
// root, ready to be evicted as a closer one arrives.
type candidate struct {
	id   string
	dist float64
}

type candidateHeap []candidate

func (h candidateHeap) Len() int            { return len(h) }
func (h candidateHeap) Less(i, j int) bool  { return h[i].dist > h[j].dist }
func (h candidateHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x interface{}) { *h = append(*h, x.(candidate)) }
func (h *candidateHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
