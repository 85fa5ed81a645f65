package vector

import (
	"math"

	"github.com/hubenschmidt/go-tilesearch/query"
)

// EuclideanDistance returns the L2 distance between two vectors.
// Vectors of different length are infinitely far apart.
func EuclideanDistance(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// CosineDistance returns 1 - cosine similarity.
func CosineDistance(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 1
	}

	return 1 - dotProduct/(math.Sqrt(normA)*math.Sqrt(normB))
}

// DistanceFunc returns the distance function for a distance type.
func DistanceFunc(d query.DistanceType) func(a, b []float64) float64 {
	switch d {
	case query.DistanceCosine:
		return CosineDistance
	default:
		return EuclideanDistance
	}
}
