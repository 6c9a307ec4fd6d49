package dynamics

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// CartPole is a cart sliding on a rail with a pole hinged on top, grounded
// on the teacher's internal/physics.CartPole.Derive formula. Position 0 is
// cart displacement (which the original dynamics never reads back — the
// cart's own position does not affect its acceleration, only the pole angle
// does); position 1 is pole angle.
type CartPole struct {
	CartMass   float64
	PoleMass   float64
	PoleLength float64
	Gravity    float64
}

func NewCartPole() *CartPole {
	return &CartPole{CartMass: 1.0, PoleMass: 0.1, PoleLength: 1.0, Gravity: 9.81}
}

func (c *CartPole) Dofs() int { return 2 }

// accel returns (xacc, thetaacc) and every intermediate needed by the
// Jacobian, so Accel and AccelJacobians never duplicate the algebra.
func (c *CartPole) accel(theta, omega, force float64) (xacc, thetaacc float64, d struct {
	tempDTheta, tempDOmega, tempDForce       float64
	denomDTheta                              float64
	thetaaccDTheta, thetaaccDOmega, thetaaccDForce float64
}) {
	mc, mp, l, g := c.CartMass, c.PoleMass, c.PoleLength, c.Gravity
	a := mc + mp
	b := mp * l
	s, cs := math.Sin(theta), math.Cos(theta)

	temp := (force + b*omega*s) / a
	denom := l * (4.0/3.0 - mp*cs*cs/a)
	numerator := g*s - cs*temp
	thetaacc = numerator / denom
	xacc = temp - b*thetaacc*cs/a

	d.tempDTheta = b * omega * cs / a
	d.tempDOmega = b * s / a
	d.tempDForce = 1 / a
	d.denomDTheta = 2 * b * cs * s / a

	numDTheta := g*cs + s*temp - cs*d.tempDTheta
	numDOmega := -cs * d.tempDOmega
	numDForce := -cs * d.tempDForce

	d.thetaaccDTheta = (numDTheta*denom - numerator*d.denomDTheta) / (denom * denom)
	d.thetaaccDOmega = numDOmega / denom
	d.thetaaccDForce = numDForce / denom
	return
}

func (c *CartPole) Accel(pos, vel, force *mat.VecDense) *mat.VecDense {
	theta, omega := pos.AtVec(1), vel.AtVec(1)
	f := 0.0
	if force.Len() > 0 {
		f = force.AtVec(0)
	}
	xacc, thetaacc, _ := c.accel(theta, omega, f)
	return vec(xacc, thetaacc)
}

func (c *CartPole) AccelJacobians(pos, vel, force *mat.VecDense) (dPos, dVel, dForce *mat.Dense) {
	mc, mp, l := c.CartMass, c.PoleMass, c.PoleLength
	a := mc + mp
	b := mp * l
	theta, omega := pos.AtVec(1), vel.AtVec(1)
	f := 0.0
	if force.Len() > 0 {
		f = force.AtVec(0)
	}
	cs := math.Cos(theta)
	_, thetaacc, d := c.accel(theta, omega, f)

	xaccDTheta := d.tempDTheta - (b/a)*(d.thetaaccDTheta*cs-thetaacc*math.Sin(theta))
	xaccDOmega := d.tempDOmega - (b/a)*(d.thetaaccDOmega*cs)
	xaccDForce := d.tempDForce - (b/a)*(d.thetaaccDForce*cs)

	dPos = mat.NewDense(2, 2, []float64{
		0, xaccDTheta,
		0, d.thetaaccDTheta,
	})
	dVel = mat.NewDense(2, 2, []float64{
		0, xaccDOmega,
		0, d.thetaaccDOmega,
	})
	// Only the cart DOF is actuated; the pole's generalized force column is
	// always zero because no torque is applied directly to the hinge.
	dForce = mat.NewDense(2, 2, []float64{
		xaccDForce, 0,
		d.thetaaccDForce, 0,
	})
	return
}

func (c *CartPole) Energy(pos, vel *mat.VecDense) float64 {
	theta, omega := pos.AtVec(1), vel.AtVec(1)
	xdot := vel.AtVec(0)
	l, mp, mc, g := c.PoleLength, c.PoleMass, c.CartMass, c.Gravity
	ke := 0.5*mc*xdot*xdot + 0.5*mp*(xdot*xdot+l*l*omega*omega+2*l*xdot*omega*math.Cos(theta))
	pe := mp * g * l * math.Cos(theta)
	return ke + pe
}

func (c *CartPole) PositionLimits() (lo, hi *mat.VecDense) {
	return vec(-10, -2*math.Pi), vec(10, 2*math.Pi)
}
func (c *CartPole) VelocityLimits() (lo, hi *mat.VecDense) { return vec(-50, -50), vec(50, 50) }
func (c *CartPole) ForceLimits() (lo, hi *mat.VecDense)    { return vec(-50, 0), vec(50, 0) }

func (c *CartPole) Masses() *mat.VecDense { return vec(c.CartMass, c.PoleMass) }
func (c *CartPole) SetMasses(m *mat.VecDense) {
	if m.Len() > 0 {
		c.CartMass = m.AtVec(0)
	}
	if m.Len() > 1 {
		c.PoleMass = m.AtVec(1)
	}
}
func (c *CartPole) MassLimits() (lo, hi *mat.VecDense) { return vec(1e-3, 1e-3), vec(1e3, 1e3) }

func (c *CartPole) NodeNames() []string { return []string{"cart", "pole"} }

func (c *CartPole) NodeFrame(name string, pos *mat.VecDense) (translation, rotation [3]float64) {
	x, theta := pos.AtVec(0), pos.AtVec(1)
	switch name {
	case "cart":
		translation = [3]float64{x, 0, 0}
	case "pole":
		translation = [3]float64{x + c.PoleLength*math.Sin(theta), c.PoleLength * math.Cos(theta), 0}
		rotation = [3]float64{0, 0, theta}
	}
	return
}

func (c *CartPole) Clone() AnalyticDynamics {
	cp := *c
	return &cp
}
