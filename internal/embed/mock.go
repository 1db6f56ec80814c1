package embed

import (
	"context"
	"math/rand"

	"github.com/pmcopilot/backend/internal/utils"
)

// Mock produces deterministic unit vectors derived from the text hash, for
// local development without an inference sidecar. Equal texts always map to
// equal vectors, so cosine search and clustering behave consistently.
type Mock struct {
	ModelName string
	Dimension int
}

func (m Mock) Model() string { return m.ModelName }
func (m Mock) Dim() int      { return m.Dimension }

func (m Mock) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	dim := m.Dimension
	if dim <= 0 {
		dim = 384
	}
	out := make([][]float64, 0, len(texts))
	for _, t := range texts {
		rng := rand.New(rand.NewSource(int64(utils.HashStringToUint64(t))))
		v := make([]float64, dim)
		for i := range v {
			v[i] = rng.NormFloat64()
		}
		Normalize(v)
		out = append(out, v)
	}
	return out, nil
}
