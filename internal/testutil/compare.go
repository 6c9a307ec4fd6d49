package testutil

import "gonum.org/v1/gonum/mat"

// MaxAbsDiff returns the largest absolute elementwise difference between
// two vectors of equal length.
func MaxAbsDiff(a, b *mat.VecDense) float64 {
	worst := 0.0
	for i := 0; i < a.Len(); i++ {
		d := a.AtVec(i) - b.AtVec(i)
		if d < 0 {
			d = -d
		}
		if d > worst {
			worst = d
		}
	}
	return worst
}

// MaxAbsDiffDense returns the largest absolute elementwise difference
// between two matrices of equal shape.
func MaxAbsDiffDense(a, b mat.Matrix) float64 {
	r, c := a.Dims()
	worst := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			d := a.At(i, j) - b.At(i, j)
			if d < 0 {
				d = -d
			}
			if d > worst {
				worst = d
			}
		}
	}
	return worst
}
