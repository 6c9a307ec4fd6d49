// Package dynamics provides reference Simulator implementations used to
// exercise and test the trajectory optimization core. None of this package
// is part of the core's public contract: the core only ever sees the
// world.Simulator interface. Real deployments would plug in contact
// resolution, a constraint LCP, and skeleton kinematics here instead.
//
// Every system in this package is stepped with semi-implicit (symplectic)
// Euler integration, which gives closed-form position/velocity Jacobians
// without automatic differentiation: an AnalyticDynamics implementation only
// has to supply acceleration and its three partials, and Engine derives the
// six BackpropSnapshot Jacobians from them.
package dynamics

import "gonum.org/v1/gonum/mat"

// AnalyticDynamics is a system whose acceleration and acceleration Jacobians
// are known in closed form. Engine wraps one of these to satisfy
// world.Simulator.
type AnalyticDynamics interface {
	Dofs() int

	// Accel returns the generalized acceleration at the given state.
	Accel(pos, vel, force *mat.VecDense) *mat.VecDense

	// AccelJacobians returns d(accel)/d(pos), d(accel)/d(vel), and
	// d(accel)/d(force) at the given state, each Dofs() x Dofs().
	AccelJacobians(pos, vel, force *mat.VecDense) (dPos, dVel, dForce *mat.Dense)

	Energy(pos, vel *mat.VecDense) float64

	PositionLimits() (lo, hi *mat.VecDense)
	VelocityLimits() (lo, hi *mat.VecDense)
	ForceLimits() (lo, hi *mat.VecDense)

	Masses() *mat.VecDense
	SetMasses(*mat.VecDense)
	MassLimits() (lo, hi *mat.VecDense)

	NodeNames() []string
	// NodeFrame returns the world-frame translation and XYZ Euler rotation
	// of the named node given the current position vector.
	NodeFrame(name string, pos *mat.VecDense) (translation, rotation [3]float64)

	Clone() AnalyticDynamics
}

func vec(vs ...float64) *mat.VecDense {
	return mat.NewVecDense(len(vs), vs)
}

func filled(n int, v float64) *mat.VecDense {
	out := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		out.SetVec(i, v)
	}
	return out
}
