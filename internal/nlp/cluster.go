package nlp

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
)

const (
	kmeansInits   = 10
	kmeansMaxIter = 100
	maxHintLen    = 120

	// DefaultSeed keeps clustering runs reproducible across invocations.
	DefaultSeed int64 = 42
)

// KMeans partitions vectors into k clusters and returns one label per
// vector. k is clamped to [1, len(vectors)]; an empty input yields an empty
// label set. Runs kmeansInits seeded initializations and keeps the one with
// the lowest inertia, so repeated runs with the same seed are identical.
func KMeans(vectors [][]float64, k int, seed int64) []int {
	n := len(vectors)
	if n == 0 {
		return nil
	}
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}

	rng := rand.New(rand.NewSource(seed))

	bestLabels := make([]int, n)
	bestInertia := math.Inf(1)
	for init := 0; init < kmeansInits; init++ {
		labels, inertia := runLloyd(vectors, k, rng)
		if inertia < bestInertia {
			bestInertia = inertia
			copy(bestLabels, labels)
		}
	}
	return bestLabels
}

func runLloyd(vectors [][]float64, k int, rng *rand.Rand) ([]int, float64) {
	n := len(vectors)
	dim := len(vectors[0])

	// Seed centroids from distinct input points.
	perm := rng.Perm(n)
	centroids := make([][]float64, k)
	for i := 0; i < k; i++ {
		centroids[i] = append([]float64(nil), vectors[perm[i]]...)
	}

	labels := make([]int, n)
	inertia := 0.0
	for iter := 0; iter < kmeansMaxIter; iter++ {
		changed := false
		inertia = 0.0
		for i, v := range vectors {
			best, bestDist := 0, math.Inf(1)
			for c := range centroids {
				d := floats.Distance(v, centroids[c], 2)
				if d < bestDist {
					best, bestDist = c, d
				}
			}
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
			inertia += bestDist * bestDist
		}
		if !changed && iter > 0 {
			break
		}

		counts := make([]int, k)
		for c := range centroids {
			for j := 0; j < dim; j++ {
				centroids[c][j] = 0
			}
		}
		for i, v := range vectors {
			floats.Add(centroids[labels[i]], v)
			counts[labels[i]]++
		}
		for c := range centroids {
			if counts[c] == 0 {
				// Reseed emptied clusters from a random point.
				copy(centroids[c], vectors[rng.Intn(n)])
				continue
			}
			floats.Scale(1/float64(counts[c]), centroids[c])
		}
	}
	return labels, inertia
}

// ClusterHints builds a short representative summary per cluster: the two
// shortest member texts joined with a separator, clipped to 120 characters.
// Cheap and deterministic; not a topic model.
func ClusterHints(texts []string, labels []int) map[int]string {
	groups := map[int][]string{}
	for i, lab := range labels {
		if i < len(texts) {
			groups[lab] = append(groups[lab], texts[i])
		}
	}

	hints := make(map[int]string, len(groups))
	for lab, g := range groups {
		sort.SliceStable(g, func(i, j int) bool { return len(g[i]) < len(g[j]) })
		if len(g) > 2 {
			g = g[:2]
		}
		hint := ""
		for i, t := range g {
			if i > 0 {
				hint += " | "
			}
			hint += t
		}
		if len(hint) > maxHintLen {
			hint = hint[:maxHintLen]
		}
		hints[lab] = hint
	}
	return hints
}
