package match

// SquaredL2 computes the squared Euclidean distance between two vectors.
// Accumulates in float64 to limit rounding error on long embeddings.
// Assumes equal length (callers validate dimensions first).
func SquaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
