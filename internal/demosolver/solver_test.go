package demosolver_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajopt/internal/demosolver"
	"github.com/san-kum/trajopt/internal/errs"
	"github.com/san-kum/trajopt/internal/logging"
)

// quadratic is a two-variable unconstrained bowl, f(x) = (x0-1)^2 + (x1+2)^2,
// used to exercise Solve without constructing a full MultiShot.
type quadratic struct {
	target *mat.VecDense
}

func (q *quadratic) FlatDim() int      { return 2 }
func (q *quadratic) ConstraintDim() int { return 0 }

func (q *quadratic) UpperBounds() *mat.VecDense {
	return mat.NewVecDense(2, []float64{1e6, 1e6})
}
func (q *quadratic) LowerBounds() *mat.VecDense {
	return mat.NewVecDense(2, []float64{-1e6, -1e6})
}
func (q *quadratic) ConstraintUpperBounds() *mat.VecDense { return mat.NewVecDense(0, nil) }
func (q *quadratic) ConstraintLowerBounds() *mat.VecDense { return mat.NewVecDense(0, nil) }

func (q *quadratic) ComputeLoss(x *mat.VecDense) (float64, error) {
	d0 := x.AtVec(0) - q.target.AtVec(0)
	d1 := x.AtVec(1) - q.target.AtVec(1)
	return d0*d0 + d1*d1, nil
}

func (q *quadratic) BackpropGradient(x *mat.VecDense) (*mat.VecDense, error) {
	d0 := x.AtVec(0) - q.target.AtVec(0)
	d1 := x.AtVec(1) - q.target.AtVec(1)
	return mat.NewVecDense(2, []float64{2 * d0, 2 * d1}), nil
}

func (q *quadratic) ComputeConstraints(x *mat.VecDense) (*mat.VecDense, error) {
	return mat.NewVecDense(0, nil), nil
}

func (q *quadratic) BackpropJacobian(x *mat.VecDense) (*mat.Dense, error) {
	return mat.NewDense(0, 2, nil), nil
}

func TestSolveConvergesOnUnconstrainedQuadratic(t *testing.T) {
	problem := &quadratic{target: mat.NewVecDense(2, []float64{1, -2})}
	opts := demosolver.DefaultOptions()
	// The quadratic's Hessian eigenvalues are 2; a step below 1/2 converges
	// monotonically, and well below it converges fast enough to hit the
	// default gradient tolerance in a handful of iterations.
	opts.StepSize = 0.4
	solver := demosolver.New(opts, logging.Noop())

	var iterates []float64
	outcome, err := solver.Solve(problem, mat.NewVecDense(2, nil), func(x *mat.VecDense) {
		iterates = append(iterates, x.AtVec(0))
	})

	require.NoError(t, err)
	assert.Equal(t, errs.TolerancesReached, outcome)
	assert.NotEmpty(t, iterates)

	loss, err := problem.ComputeLoss(mat.NewVecDense(2, []float64{1, -2}))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, loss, 1e-9)
}

// failingProblem always errors on ComputeLoss, exercising Solve's error
// propagation path.
type failingProblem struct{ quadratic }

func (f *failingProblem) ComputeLoss(x *mat.VecDense) (float64, error) {
	return 0, errors.New("boom")
}

func TestSolvePropagatesPollErrors(t *testing.T) {
	problem := &failingProblem{quadratic: quadratic{target: mat.NewVecDense(2, nil)}}
	solver := demosolver.New(demosolver.DefaultOptions(), logging.Noop())

	_, err := solver.Solve(problem, mat.NewVecDense(2, nil), nil)
	assert.Error(t, err)
}

func TestGridSeedFindsLowerLossCandidate(t *testing.T) {
	problem := &quadratic{target: mat.NewVecDense(2, []float64{5, 5})}
	seed := demosolver.NewGridSeed(0, [][]float64{{0, 2, 4, 6}, {0, 2, 4, 6}}, logging.Noop())

	base := mat.NewVecDense(2, []float64{0, 0})
	best, bestLoss, err := seed.Search(base, func(x *mat.VecDense) (float64, error) {
		return problem.ComputeLoss(x)
	})

	require.NoError(t, err)
	assert.InDelta(t, 4.0, best.AtVec(0), 1e-9)
	assert.InDelta(t, 4.0, best.AtVec(1), 1e-9)
	assert.InDelta(t, 2.0, bestLoss, 1e-9)
}
