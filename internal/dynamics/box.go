package dynamics

import "gonum.org/v1/gonum/mat"

// Box is a single frictionless point mass sliding on a line, driven by a
// single generalized force. It is the reference system for the
// "unconstrained sliding box" and "mass recovery" scenarios: its mass is the
// one tunable parameter, and its acceleration is linear in force, so every
// Jacobian is constant.
type Box struct {
	mass float64
}

func NewBox(mass float64) *Box {
	return &Box{mass: mass}
}

func (b *Box) Dofs() int { return 1 }

func (b *Box) Accel(pos, vel, force *mat.VecDense) *mat.VecDense {
	return vec(force.AtVec(0) / b.mass)
}

func (b *Box) AccelJacobians(pos, vel, force *mat.VecDense) (dPos, dVel, dForce *mat.Dense) {
	dPos = mat.NewDense(1, 1, []float64{0})
	dVel = mat.NewDense(1, 1, []float64{0})
	dForce = mat.NewDense(1, 1, []float64{1 / b.mass})
	return
}

func (b *Box) Energy(pos, vel *mat.VecDense) float64 {
	v := vel.AtVec(0)
	return 0.5 * b.mass * v * v
}

func (b *Box) PositionLimits() (lo, hi *mat.VecDense) { return vec(-1e6), vec(1e6) }
func (b *Box) VelocityLimits() (lo, hi *mat.VecDense) { return vec(-1e6), vec(1e6) }
func (b *Box) ForceLimits() (lo, hi *mat.VecDense)    { return vec(-1e6), vec(1e6) }

func (b *Box) Masses() *mat.VecDense { return vec(b.mass) }
func (b *Box) SetMasses(m *mat.VecDense) {
	if m.Len() > 0 {
		b.mass = m.AtVec(0)
	}
}
func (b *Box) MassLimits() (lo, hi *mat.VecDense) { return vec(1e-6), vec(1e6) }

func (b *Box) NodeNames() []string { return []string{"box"} }

func (b *Box) NodeFrame(name string, pos *mat.VecDense) (translation, rotation [3]float64) {
	translation = [3]float64{pos.AtVec(0), 0, 0}
	return translation, rotation
}

func (b *Box) Clone() AnalyticDynamics {
	return &Box{mass: b.mass}
}
