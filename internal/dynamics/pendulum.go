package dynamics

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Pendulum is a single revolute joint under gravity and viscous damping,
// grounded on the teacher's internal/physics.Pendulum model and extended
// with the closed-form acceleration Jacobians this engine needs.
type Pendulum struct {
	Mass    float64
	Length  float64
	Damping float64
	Gravity float64
}

func NewPendulum() *Pendulum {
	return &Pendulum{Mass: 1.0, Length: 1.0, Damping: 0.1, Gravity: 9.81}
}

func (p *Pendulum) Dofs() int { return 1 }

func (p *Pendulum) inertia() float64 { return p.Mass * p.Length * p.Length }

func (p *Pendulum) Accel(pos, vel, force *mat.VecDense) *mat.VecDense {
	theta := pos.AtVec(0)
	omega := vel.AtVec(0)
	torque := force.AtVec(0)
	alpha := (-p.Damping*omega - p.Mass*p.Gravity*p.Length*math.Sin(theta) + torque) / p.inertia()
	return vec(alpha)
}

func (p *Pendulum) AccelJacobians(pos, vel, force *mat.VecDense) (dPos, dVel, dForce *mat.Dense) {
	theta := pos.AtVec(0)
	i := p.inertia()
	dAlphaDTheta := -p.Mass * p.Gravity * p.Length * math.Cos(theta) / i
	dAlphaDOmega := -p.Damping / i
	dAlphaDForce := 1 / i
	dPos = mat.NewDense(1, 1, []float64{dAlphaDTheta})
	dVel = mat.NewDense(1, 1, []float64{dAlphaDOmega})
	dForce = mat.NewDense(1, 1, []float64{dAlphaDForce})
	return
}

func (p *Pendulum) Energy(pos, vel *mat.VecDense) float64 {
	theta, omega := pos.AtVec(0), vel.AtVec(0)
	ke := 0.5 * p.inertia() * omega * omega
	pe := p.Mass * p.Gravity * p.Length * (1 - math.Cos(theta))
	return ke + pe
}

func (p *Pendulum) PositionLimits() (lo, hi *mat.VecDense) {
	return vec(-2 * math.Pi), vec(2 * math.Pi)
}
func (p *Pendulum) VelocityLimits() (lo, hi *mat.VecDense) { return vec(-50), vec(50) }
func (p *Pendulum) ForceLimits() (lo, hi *mat.VecDense)    { return vec(-100), vec(100) }

func (p *Pendulum) Masses() *mat.VecDense { return vec(p.Mass) }
func (p *Pendulum) SetMasses(m *mat.VecDense) {
	if m.Len() > 0 {
		p.Mass = m.AtVec(0)
	}
}
func (p *Pendulum) MassLimits() (lo, hi *mat.VecDense) { return vec(1e-3), vec(1e3) }

func (p *Pendulum) NodeNames() []string { return []string{"bob"} }

func (p *Pendulum) NodeFrame(name string, pos *mat.VecDense) (translation, rotation [3]float64) {
	theta := pos.AtVec(0)
	translation = [3]float64{p.Length * math.Sin(theta), -p.Length * math.Cos(theta), 0}
	rotation = [3]float64{0, 0, theta}
	return
}

func (p *Pendulum) Clone() AnalyticDynamics {
	c := *p
	return &c
}
