package ai

import "math"

// Normalize scales a vector to unit length so that a plain dot product
// equals cosine similarity. Returns a new vector. A zero vector is returned
// unchanged rather than divided by zero.
func Normalize(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return v
	}

	norm := float32(math.Sqrt(sumSquares))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}
	return result
}

// CosineSimilarity computes the cosine similarity between two vectors.
// For unit-normalized vectors this is a plain dot product. Returns 0 for
// mismatched lengths or zero-magnitude inputs.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
