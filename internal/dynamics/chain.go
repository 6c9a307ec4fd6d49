package dynamics

import "gonum.org/v1/gonum/mat"

// Chain is a line of point masses connected to their neighbors and to a
// fixed floor by linear springs, each independently actuated — grounded on
// the teacher's internal/physics.MassChain, extended with a floor spring
// standing in for ground contact and with per-mass actuation so it can serve
// as the "jumpworm" articulated-body scenario. Being linear, its
// acceleration Jacobians are constant matrices, independent of state.
type Chain struct {
	n        int
	mass     []float64
	k        float64 // inter-mass spring constant, also each mass's floor anchor spring
	kFloor   float64 // floor spring constant
	floorPos float64
	damping  float64
	gravity  float64
}

// NewChain builds an n-mass chain with a floor at floorPos.
func NewChain(n int, floorPos float64) *Chain {
	mass := make([]float64, n)
	for i := range mass {
		mass[i] = 1.0
	}
	return &Chain{
		n:        n,
		mass:     mass,
		k:        50.0,
		kFloor:   200.0,
		floorPos: floorPos,
		damping:  0.5,
		gravity:  9.81,
	}
}

func (c *Chain) Dofs() int { return c.n }

func (c *Chain) Accel(pos, vel, force *mat.VecDense) *mat.VecDense {
	out := mat.NewVecDense(c.n, nil)
	for i := 0; i < c.n; i++ {
		x, v := pos.AtVec(i), vel.AtVec(i)
		f := c.k*(c.floorPos-x) - c.damping*v - c.mass[i]*c.gravity
		if i > 0 {
			f += c.k * (pos.AtVec(i-1) - x)
		}
		if i < c.n-1 {
			f += c.k * (pos.AtVec(i+1) - x)
		}
		f += c.kFloor * (c.floorPos - x)
		f += force.AtVec(i)
		out.SetVec(i, f/c.mass[i])
	}
	return out
}

func (c *Chain) AccelJacobians(pos, vel, force *mat.VecDense) (dPos, dVel, dForce *mat.Dense) {
	dPos = mat.NewDense(c.n, c.n, nil)
	dVel = mat.NewDense(c.n, c.n, nil)
	dForce = mat.NewDense(c.n, c.n, nil)
	for i := 0; i < c.n; i++ {
		m := c.mass[i]
		neighbors := 0
		if i > 0 {
			dPos.Set(i, i-1, c.k/m)
			neighbors++
		}
		if i < c.n-1 {
			dPos.Set(i, i+1, c.k/m)
			neighbors++
		}
		dPos.Set(i, i, -(float64(neighbors)*c.k+c.k+c.kFloor)/m)
		dVel.Set(i, i, -c.damping/m)
		dForce.Set(i, i, 1/m)
	}
	return
}

func (c *Chain) Energy(pos, vel *mat.VecDense) float64 {
	e := 0.0
	for i := 0; i < c.n; i++ {
		x, v := pos.AtVec(i), vel.AtVec(i)
		e += 0.5 * c.mass[i] * v * v
		e += 0.5 * (c.k + c.kFloor) * (c.floorPos - x) * (c.floorPos - x)
		e += c.mass[i] * c.gravity * x
		if i < c.n-1 {
			dx := pos.AtVec(i+1) - x
			e += 0.5 * c.k * dx * dx
		}
	}
	return e
}

func (c *Chain) PositionLimits() (lo, hi *mat.VecDense) { return filled(c.n, -1e3), filled(c.n, 1e3) }
func (c *Chain) VelocityLimits() (lo, hi *mat.VecDense) { return filled(c.n, -1e3), filled(c.n, 1e3) }
func (c *Chain) ForceLimits() (lo, hi *mat.VecDense)    { return filled(c.n, -500), filled(c.n, 500) }

func (c *Chain) Masses() *mat.VecDense {
	return mat.NewVecDense(c.n, c.mass)
}
func (c *Chain) SetMasses(m *mat.VecDense) {
	for i := 0; i < c.n && i < m.Len(); i++ {
		c.mass[i] = m.AtVec(i)
	}
}
func (c *Chain) MassLimits() (lo, hi *mat.VecDense) { return filled(c.n, 1e-3), filled(c.n, 1e3) }

func (c *Chain) NodeNames() []string {
	names := make([]string, c.n)
	for i := range names {
		names[i] = nodeName(i)
	}
	return names
}

func nodeName(i int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	return "link_" + string(letters[i%len(letters)])
}

func (c *Chain) NodeFrame(name string, pos *mat.VecDense) (translation, rotation [3]float64) {
	for i := 0; i < c.n; i++ {
		if nodeName(i) == name {
			translation = [3]float64{float64(i), pos.AtVec(i), 0}
			return
		}
	}
	return
}

func (c *Chain) Clone() AnalyticDynamics {
	massCopy := make([]float64, len(c.mass))
	copy(massCopy, c.mass)
	cp := *c
	cp.mass = massCopy
	return &cp
}
