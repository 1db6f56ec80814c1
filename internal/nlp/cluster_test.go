package nlp

import (
	"strings"
	"testing"
)

func toyVectors() [][]float64 {
	return [][]float64{
		{1, 0}, {0.99, 0.01}, {0.98, 0.02},
		{0, 1}, {0.01, 0.99}, {0.02, 0.98},
	}
}

func TestKMeansSeparatesObviousClusters(t *testing.T) {
	labels := KMeans(toyVectors(), 2, DefaultSeed)
	if len(labels) != 6 {
		t.Fatalf("expected 6 labels, got %d", len(labels))
	}
	if labels[0] != labels[1] || labels[1] != labels[2] {
		t.Fatalf("expected first three vectors in one cluster, got %v", labels)
	}
	if labels[3] != labels[4] || labels[4] != labels[5] {
		t.Fatalf("expected last three vectors in one cluster, got %v", labels)
	}
	if labels[0] == labels[3] {
		t.Fatalf("expected two distinct clusters, got %v", labels)
	}
}

func TestKMeansDeterministicForSeed(t *testing.T) {
	a := KMeans(toyVectors(), 2, DefaultSeed)
	b := KMeans(toyVectors(), 2, DefaultSeed)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("expected identical labels for the same seed, got %v vs %v", a, b)
		}
	}
}

func TestKMeansClampsK(t *testing.T) {
	vectors := [][]float64{{1, 0}, {0, 1}}
	labels := KMeans(vectors, 10, DefaultSeed)
	if len(labels) != 2 {
		t.Fatalf("expected 2 labels, got %d", len(labels))
	}

	labels = KMeans(vectors, 0, DefaultSeed)
	if labels[0] != labels[1] {
		t.Fatalf("expected single cluster when k clamps to 1, got %v", labels)
	}
}

func TestKMeansEmptyInput(t *testing.T) {
	if labels := KMeans(nil, 3, DefaultSeed); len(labels) != 0 {
		t.Fatalf("expected no labels for empty input, got %v", labels)
	}
}

func TestClusterHintsPicksShortestTexts(t *testing.T) {
	texts := []string{
		"a much longer description of the problem that keeps going",
		"short one",
		"tiny",
	}
	labels := []int{0, 0, 0}
	hints := ClusterHints(texts, labels)
	if hints[0] != "tiny | short one" {
		t.Fatalf("expected two shortest texts joined, got %q", hints[0])
	}
}

func TestClusterHintsClipped(t *testing.T) {
	texts := []string{strings.Repeat("x", 200), strings.Repeat("y", 200)}
	hints := ClusterHints(texts, []int{0, 0})
	if len(hints[0]) != 120 {
		t.Fatalf("expected 120-char clip, got %d", len(hints[0]))
	}
}
