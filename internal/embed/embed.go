package embed

import "context"

// Provider maps cleaned texts to L2-normalized vectors of a fixed dimension.
// Implementations hold process-wide model state and are safe to keep alive
// for the process lifetime.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
	Model() string
	Dim() int
}
