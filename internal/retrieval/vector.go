package retrieval

import "sort"

// VectorIndex finds the stored vectors most similar to a query.
type VectorIndex interface {
	Len() int
	// Search returns up to k (index, similarity) pairs, best first.
	Search(query []float32, k int) ([]int, []float32)
}

// FlatIndex is exact inner-product search over unit vectors. Corpora here
// are one document's tables and pages, small enough for a linear scan.
type FlatIndex struct {
	vecs [][]float32
}

func NewFlatIndex(vecs [][]float32) *FlatIndex {
	for _, v := range vecs {
		normalize(v)
	}
	return &FlatIndex{vecs: vecs}
}

func (f *FlatIndex) Len() int { return len(f.vecs) }

func (f *FlatIndex) Search(query []float32, k int) ([]int, []float32) {
	if k <= 0 || len(f.vecs) == 0 {
		return nil, nil
	}
	sims := make([]float32, len(f.vecs))
	order := make([]int, len(f.vecs))
	for i, v := range f.vecs {
		sims[i] = dot(v, query)
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return sims[order[a]] > sims[order[b]] })
	if k > len(order) {
		k = len(order)
	}
	order = order[:k]
	out := make([]float32, k)
	for i, idx := range order {
		out[i] = sims[idx]
	}
	return order, out
}

func dot(a, b []float32) float32 {
	n := min(len(a), len(b))
	var s float32
	for i := 0; i < n; i++ {
		s += a[i] * b[i]
	}
	return s
}
