// Package testutil holds finite-difference reference routines used only by
// tests to check analytic Jacobians against: the production dynamics and
// loss code never imports this package, and never falls back to a finite
// difference when an analytic derivative exists.
package testutil

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Ridders extrapolation parameters, grounded on the original engine's
// central-difference-with-Richardson-extrapolation routine: a shrinking
// sequence of step sizes by factor con, with a Neville tableau of
// increasing-order extrapolations and a safety threshold that rejects an
// extrapolation whose error grew too much from the previous order.
const (
	riddersCon         = 1.4
	riddersCon2        = riddersCon * riddersCon
	riddersTableSize   = 10
	riddersSafeThresh  = 2.0
	riddersInitialStep = 1e-3
)

// scalarDerivative differentiates f at x by Ridders extrapolation,
// returning the best estimate found across the tableau.
func scalarDerivative(f func(float64) float64, x float64) float64 {
	var tab [riddersTableSize][riddersTableSize]float64

	step := riddersInitialStep
	tab[0][0] = (f(x+step) - f(x-step)) / (2 * step)

	best := tab[0][0]
	bestErr := math.Inf(1)

	for i := 1; i < riddersTableSize; i++ {
		step /= riddersCon
		tab[0][i] = (f(x+step) - f(x-step)) / (2 * step)

		fac := riddersCon2
		for j := 1; j <= i; j++ {
			tab[j][i] = (tab[j-1][i]*fac - tab[j-1][i-1]) / (fac - 1.0)
			fac *= riddersCon2

			errA := math.Abs(tab[j][i] - tab[j-1][i])
			errB := math.Abs(tab[j][i] - tab[j-1][i-1])
			currErr := math.Max(errA, errB)
			if currErr < bestErr {
				bestErr = currErr
				best = tab[j][i]
			}
		}

		if math.Abs(tab[i][i]-tab[i-1][i-1]) > riddersSafeThresh*bestErr {
			break
		}
	}
	return best
}

// Gradient differentiates a scalar function of a vector componentwise,
// perturbing exactly one coordinate of x per call to f, matching the
// original engine's per-index perturbation pattern rather than a single
// simultaneous step over every coordinate.
func Gradient(f func(*mat.VecDense) float64, x *mat.VecDense) *mat.VecDense {
	n := x.Len()
	grad := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		probe := cloneVec(x)
		grad.SetVec(i, scalarDerivative(func(v float64) float64 {
			probe.SetVec(i, v)
			return f(probe)
		}, x.AtVec(i)))
	}
	return grad
}

// Jacobian differentiates a vector-valued function of a vector, returning
// an m x n matrix whose column i is d(f)/d(x_i).
func Jacobian(f func(*mat.VecDense) *mat.VecDense, x *mat.VecDense) *mat.Dense {
	n := x.Len()
	probe := cloneVec(x)
	f0 := f(probe)
	m := f0.Len()

	jac := mat.NewDense(m, n, nil)
	for col := 0; col < n; col++ {
		for row := 0; row < m; row++ {
			r, c := row, col
			jac.Set(r, c, scalarDerivative(func(v float64) float64 {
				perturbed := cloneVec(x)
				perturbed.SetVec(c, v)
				return f(perturbed).AtVec(r)
			}, x.AtVec(col)))
		}
	}
	return jac
}

func cloneVec(v *mat.VecDense) *mat.VecDense {
	out := mat.NewVecDense(v.Len(), nil)
	out.CopyVec(v)
	return out
}
