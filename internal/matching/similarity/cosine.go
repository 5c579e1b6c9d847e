// internal/matching/similarity/cosine.go
package similarity

import "math"

// Cosine returns the cosine similarity of a and b in [-1, 1].
// Mismatched lengths and zero vectors yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return clamp(sim, -1, 1)
}

// FromDistance converts a cosine distance (as returned by pgvector's <=>) to a similarity.
func FromDistance(distance float64) float64 {
	return clamp(1-distance, -1, 1)
}

// FromESScore undoes Elasticsearch's cosine score normalisation, (1 + cos) / 2.
func FromESScore(score float64) float64 {
	return clamp(2*score-1, -1, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
