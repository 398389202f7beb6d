package retrieval

import "math"

// BM25 is an Okapi BM25 scorer over a fixed tokenized corpus. IDF uses the
// non-negative form ln(1 + (N-n+0.5)/(n+0.5)), so terms present in every
// document still score above zero.
type BM25 struct {
	K1, B  float64
	docs   []map[string]int
	lens   []int
	avgLen float64
	idf    map[string]float64
}

func NewBM25(corpus [][]string) *BM25 {
	bm := &BM25{
		K1:   1.5,
		B:    0.75,
		docs: make([]map[string]int, len(corpus)),
		lens: make([]int, len(corpus)),
		idf:  make(map[string]float64),
	}
	df := make(map[string]int)
	total := 0
	for i, toks := range corpus {
		tf := make(map[string]int, len(toks))
		for _, t := range toks {
			tf[t]++
		}
		for t := range tf {
			df[t]++
		}
		bm.docs[i] = tf
		bm.lens[i] = len(toks)
		total += len(toks)
	}
	if len(corpus) > 0 {
		bm.avgLen = float64(total) / float64(len(corpus))
	}
	n := float64(len(corpus))
	for t, f := range df {
		bm.idf[t] = math.Log(1 + (n-float64(f)+0.5)/(float64(f)+0.5))
	}
	return bm
}

func (bm *BM25) Len() int { return len(bm.docs) }

// Scores returns the score of every document for the query tokens.
func (bm *BM25) Scores(query []string) []float64 {
	out := make([]float64, len(bm.docs))
	if bm.avgLen == 0 {
		return out
	}
	for _, q := range query {
		idf, ok := bm.idf[q]
		if !ok {
			continue
		}
		for i, tf := range bm.docs {
			f := float64(tf[q])
			if f == 0 {
				continue
			}
			norm := bm.K1 * (1 - bm.B + bm.B*float64(bm.lens[i])/bm.avgLen)
			out[i] += idf * f * (bm.K1 + 1) / (f + norm)
		}
	}
	return out
}
