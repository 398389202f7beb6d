package retrieval

import (
	"context"
	"math"
)

// EmbeddingBackend turns texts into vectors. Implementations are chosen at
// construction time; callers never probe for optional packages.
type EmbeddingBackend interface {
	Name() string
	Dimensions() int
	// Embed returns one vector per text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// DefaultNullDimensions matches the small sentence encoders the index was
// tuned with.
const DefaultNullDimensions = 384

// NullBackend returns zero vectors, which contribute nothing to fused
// scores. Retrieval then degrades to BM25 alone.
type NullBackend struct {
	Dim int
}

func (n NullBackend) Name() string { return "null" }

func (n NullBackend) Dimensions() int {
	if n.Dim <= 0 {
		return DefaultNullDimensions
	}
	return n.Dim
}

func (n NullBackend) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, n.Dimensions())
	}
	return out, nil
}

func isNull(b EmbeddingBackend) bool {
	switch b.(type) {
	case NullBackend, *NullBackend:
		return true
	}
	return false
}

// normalize scales v to unit length in place. Zero vectors stay zero.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := float32(1 / (math.Sqrt(sum) + 1e-12))
	for i := range v {
		v[i] *= inv
	}
	return v
}
