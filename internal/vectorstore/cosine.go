package vectorstore

import "math"

// CosineSimilarity computes dot(a,b) / (|a|*|b|). Dimension mismatches
// and zero-norm vectors score 0 rather than erroring, so a
// misconfigured embedding model degrades retrieval instead of breaking
// the chat path.
func CosineSimilarity(a, b []float32) float64 {
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
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
