// Package demosolver is a scoped gradient/penalty driver that satisfies
// only the construct → repeatedly evaluate → destroy polling contract a
// Problem exposes. It is not a general-purpose NLP solver: no line-search
// globalization beyond simple backtracking, no active-set handling, no
// convergence guarantee on an arbitrary problem. It exists to drive the CLI
// demonstration scenarios and the end-to-end test suite to a stopping
// outcome, the way a teaching example would.
package demosolver

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajopt/internal/errs"
	"github.com/san-kum/trajopt/internal/logging"
)

// Options configures the driver's fixed-step penalty descent.
type Options struct {
	MaxIterations     int
	GradientTolerance float64
	PenaltyWeight     float64
	StepSize          float64
	StepShrink        float64
	MinStepSize       float64
}

// DefaultOptions returns the settings the CLI's run subcommand and the
// end-to-end scenario suite both use.
func DefaultOptions() Options {
	return Options{
		MaxIterations:     200,
		GradientTolerance: 1e-6,
		PenaltyWeight:     100,
		StepSize:          1e-2,
		StepShrink:        0.5,
		MinStepSize:       1e-10,
	}
}

// Problem is the §4.6 polling surface this driver needs; it is a subset of
// trajectory.Problem so tests can stub it without constructing a full
// MultiShot.
type Problem interface {
	FlatDim() int
	ConstraintDim() int
	UpperBounds() *mat.VecDense
	LowerBounds() *mat.VecDense
	ConstraintUpperBounds() *mat.VecDense
	ConstraintLowerBounds() *mat.VecDense
	ComputeLoss(x *mat.VecDense) (float64, error)
	BackpropGradient(x *mat.VecDense) (*mat.VecDense, error)
	ComputeConstraints(x *mat.VecDense) (*mat.VecDense, error)
	BackpropJacobian(x *mat.VecDense) (*mat.Dense, error)
}

// Solver drives a Problem with an exterior quadratic penalty on constraint
// violation, clamping each step to the problem's own variable bounds.
type Solver struct {
	opts Options
	log  *logging.Logger
}

func New(opts Options, log *logging.Logger) *Solver {
	return &Solver{opts: opts, log: log}
}

// Solve polls problem starting from x0 and announces every accepted
// iteration (one that strictly reduced the penalized objective) through
// onIterate, the way §4.7's optimization record expects — it is passed the
// iterate's x so the caller can re-poll the problem for the quantities it
// wants to archive. Solve never mutates x0.
func (s *Solver) Solve(problem Problem, x0 *mat.VecDense, onIterate func(x *mat.VecDense)) (errs.Outcome, error) {
	lower, upper := problem.LowerBounds(), problem.UpperBounds()
	x := cloneVec(x0)

	penalized, grad, err := s.evalPenalized(problem, x)
	if err != nil {
		return errs.Invalid, err
	}
	if onIterate != nil {
		onIterate(x)
	}

	if gradNorm(grad) < s.opts.GradientTolerance {
		return errs.StaticProblem, nil
	}

	step := s.opts.StepSize
	for iter := 0; iter < s.opts.MaxIterations; iter++ {
		candidate := clampBounds(descendStep(x, grad, step), lower, upper)
		candidatePenalized, candidateGrad, err := s.evalPenalized(problem, candidate)
		if err != nil {
			return errs.Invalid, err
		}

		if candidatePenalized >= penalized {
			step *= s.opts.StepShrink
			if step < s.opts.MinStepSize {
				return errs.IterationLimit, nil
			}
			continue
		}

		x, penalized, grad = candidate, candidatePenalized, candidateGrad
		if onIterate != nil {
			onIterate(x)
		}
		if gradNorm(grad) < s.opts.GradientTolerance {
			return errs.TolerancesReached, nil
		}
		step = s.opts.StepSize
	}
	return errs.IterationLimit, nil
}

// evalPenalized returns the objective plus a quadratic penalty on every
// constraint's bound violation, and that combined quantity's gradient via
// the chain rule through BackpropJacobian.
func (s *Solver) evalPenalized(problem Problem, x *mat.VecDense) (float64, *mat.VecDense, error) {
	loss, err := problem.ComputeLoss(x)
	if err != nil {
		return 0, nil, err
	}
	grad, err := problem.BackpropGradient(x)
	if err != nil {
		return 0, nil, err
	}
	if problem.ConstraintDim() == 0 {
		return loss, grad, nil
	}

	c, err := problem.ComputeConstraints(x)
	if err != nil {
		return 0, nil, err
	}
	cLower, cUpper := problem.ConstraintLowerBounds(), problem.ConstraintUpperBounds()
	violation := mat.NewVecDense(c.Len(), nil)
	for i := 0; i < c.Len(); i++ {
		v := c.AtVec(i)
		switch {
		case v < cLower.AtVec(i):
			violation.SetVec(i, v-cLower.AtVec(i))
		case v > cUpper.AtVec(i):
			violation.SetVec(i, v-cUpper.AtVec(i))
		}
	}

	penalty := 0.0
	for i := 0; i < violation.Len(); i++ {
		penalty += violation.AtVec(i) * violation.AtVec(i)
	}
	penalty *= s.opts.PenaltyWeight

	jac, err := problem.BackpropJacobian(x)
	if err != nil {
		return 0, nil, err
	}
	penaltyGrad := mat.NewVecDense(grad.Len(), nil)
	penaltyGrad.MulVec(jac.T(), violation)
	penaltyGrad.ScaleVec(2*s.opts.PenaltyWeight, penaltyGrad)

	total := mat.NewVecDense(grad.Len(), nil)
	total.AddVec(grad, penaltyGrad)
	return loss + penalty, total, nil
}

func descendStep(x, grad *mat.VecDense, step float64) *mat.VecDense {
	out := mat.NewVecDense(x.Len(), nil)
	out.AddScaledVec(x, -step, grad)
	return out
}

func clampBounds(x, lower, upper *mat.VecDense) *mat.VecDense {
	out := mat.NewVecDense(x.Len(), nil)
	for i := 0; i < x.Len(); i++ {
		v := x.AtVec(i)
		if v < lower.AtVec(i) {
			v = lower.AtVec(i)
		}
		if v > upper.AtVec(i) {
			v = upper.AtVec(i)
		}
		out.SetVec(i, v)
	}
	return out
}

func gradNorm(v *mat.VecDense) float64 {
	sum := 0.0
	for i := 0; i < v.Len(); i++ {
		sum += v.AtVec(i) * v.AtVec(i)
	}
	return math.Sqrt(sum)
}

func cloneVec(v *mat.VecDense) *mat.VecDense {
	out := mat.NewVecDense(v.Len(), nil)
	out.CopyVec(v)
	return out
}
