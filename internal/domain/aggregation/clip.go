package aggregation

import "math"

// L2Norm returns the Euclidean norm of vector.
func L2Norm(vector []float64) float64 {
	var sum float64
	for _, v := range vector {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Clip returns a copy of vector rescaled so its L2 norm does not exceed
// clippingNorm. A zero ceiling or a zero vector leaves the copy unchanged.
func Clip(vector []float64, clippingNorm float64) []float64 {
	out, _ := clip(vector, clippingNorm)
	return out
}

// clip is Clip that also reports whether the vector was rescaled.
func clip(vector []float64, clippingNorm float64) ([]float64, bool) {
	out := make([]float64, len(vector))
	norm := L2Norm(vector)
	if clippingNorm <= 0 || norm == 0 || norm <= clippingNorm {
		copy(out, vector)
		return out, false
	}

	scale := clippingNorm / norm
	for i, v := range vector {
		out[i] = v * scale
	}
	return out, true
}
