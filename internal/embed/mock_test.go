package embed

import (
	"context"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func TestMockEmbedDeterministic(t *testing.T) {
	m := Mock{ModelName: "mock", Dimension: 64}
	a, err := m.Embed(context.Background(), []string{"payout stuck in pending"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	b, err := m.Embed(context.Background(), []string{"payout stuck in pending"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatalf("expected identical vectors for identical text")
		}
	}
}

func TestMockEmbedUnitNorm(t *testing.T) {
	m := Mock{ModelName: "mock", Dimension: 128}
	vecs, err := m.Embed(context.Background(), []string{"fx conversion quote", "swift mt103"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	for i, v := range vecs {
		if n := floats.Norm(v, 2); math.Abs(n-1) > 1e-9 {
			t.Fatalf("vector %d not unit length: %v", i, n)
		}
	}
}

func TestMockEmbedDistinctTexts(t *testing.T) {
	m := Mock{ModelName: "mock", Dimension: 64}
	vecs, err := m.Embed(context.Background(), []string{"alpha", "beta"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if floats.Dot(vecs[0], vecs[1]) > 0.999 {
		t.Fatalf("expected distinct texts to map to distinct vectors")
	}
}

func TestMockEmbedDimensionFallback(t *testing.T) {
	m := Mock{ModelName: "mock"}
	vecs, err := m.Embed(context.Background(), []string{"x"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vecs[0]) != 384 {
		t.Fatalf("expected 384-dim fallback, got %d", len(vecs[0]))
	}
}
