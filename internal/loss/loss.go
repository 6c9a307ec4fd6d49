// Package loss wraps a scalar objective (and, optionally, an analytic
// gradient) over a rollout.Rollout, with a centered finite-difference
// fallback when no analytic gradient is supplied.
package loss

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajopt/internal/rollout"
)

// posVelStep is the finite-difference step for position and velocity
// columns; forceStep is used for force columns, which in the scenarios this
// engine targets tend to range over a wider scale than pose/velocity
// coordinates.
const (
	posVelStep = 1e-7
	forceStep  = 1e-6
)

// EvalFunc computes a scalar objective over a rollout.
type EvalFunc func(rollout.Rollout) float64

// GradFunc computes the same scalar objective and additionally writes its
// per-timestep gradient into gradOut, one matrix per mapping per
// poses/vels/forces, matching the layout the rollout it was handed uses.
type GradFunc func(r rollout.Rollout, gradOut rollout.MutableRollout) float64

// Loss is a value+gradient callable over a rollout, with optional
// constraint bounds for use as an equality/inequality constraint rather
// than the objective.
type Loss struct {
	Name      string
	f         EvalFunc
	g         GradFunc
	hasBounds bool
	lower     float64
	upper     float64
}

// New wraps f as an unconstrained loss with no analytic gradient; Eval's
// gradient will be obtained by centered finite differences.
func New(name string, f EvalFunc) *Loss {
	return &Loss{Name: name, f: f}
}

// WithGradient attaches an analytic gradient callable, bypassing the finite
// difference fallback.
func (l *Loss) WithGradient(g GradFunc) *Loss {
	l.g = g
	return l
}

// WithBounds marks this loss as a constraint with the feasible range
// [lower, upper] for its scalar output.
func (l *Loss) WithBounds(lower, upper float64) *Loss {
	l.hasBounds = true
	l.lower = lower
	l.upper = upper
	return l
}

func (l *Loss) HasBounds() bool        { return l.hasBounds }
func (l *Loss) Bounds() (float64, float64) { return l.lower, l.upper }

// Eval returns the scalar objective value only.
func (l *Loss) Eval(r rollout.Rollout) float64 {
	return l.f(r)
}

// EvalWithGradient returns the scalar objective and writes its gradient into
// gradOut. If no analytic gradient was attached, it is computed by centered
// finite differences over every mapping's poses/vels/forces matrices.
func (l *Loss) EvalWithGradient(r rollout.Rollout, gradOut rollout.MutableRollout) float64 {
	if l.g != nil {
		return l.g(r, gradOut)
	}
	return l.finiteDifferenceGradient(r, gradOut)
}

func (l *Loss) finiteDifferenceGradient(r rollout.Rollout, gradOut rollout.MutableRollout) float64 {
	base := r.DeepCopy()
	value := l.f(base)

	for _, name := range base.MappingNames() {
		l.gradMatrix(base, gradOut.MutablePoses(name), func() *mat.Dense { return base.MutablePoses(name) }, posVelStep)
		l.gradMatrix(base, gradOut.MutableVels(name), func() *mat.Dense { return base.MutableVels(name) }, posVelStep)
		l.gradMatrix(base, gradOut.MutableForces(name), func() *mat.Dense { return base.MutableForces(name) }, forceStep)
	}
	return value
}

func (l *Loss) gradMatrix(base rollout.Rollout, grad *mat.Dense, get func() *mat.Dense, step float64) {
	if grad == nil {
		return
	}
	m := get()
	rows, cols := m.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			orig := m.At(i, j)

			m.Set(i, j, orig+step)
			plus := l.f(base)

			m.Set(i, j, orig-step)
			minus := l.f(base)

			m.Set(i, j, orig)
			grad.Set(i, j, (plus-minus)/(2*step))
		}
	}
}
