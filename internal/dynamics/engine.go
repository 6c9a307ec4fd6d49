package dynamics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajopt/internal/errs"
	"github.com/san-kum/trajopt/internal/world"
)

// Engine steps an AnalyticDynamics with semi-implicit (symplectic) Euler and
// derives the six BackpropSnapshot Jacobians from the system's closed-form
// acceleration partials. It is the only world.Simulator implementation this
// repo ships.
type Engine struct {
	dyn        AnalyticDynamics
	dt         float64
	pos        *mat.VecDense
	vel        *mat.VecDense
	force      *mat.VecDense
	step       int
}

// NewEngine builds an Engine over dyn, starting at rest with zero force.
func NewEngine(dyn AnalyticDynamics, dt float64) *Engine {
	n := dyn.Dofs()
	return &Engine{
		dyn:   dyn,
		dt:    dt,
		pos:   mat.NewVecDense(n, nil),
		vel:   mat.NewVecDense(n, nil),
		force: mat.NewVecDense(n, nil),
	}
}

func (e *Engine) NumDofs() int { return e.dyn.Dofs() }

func (e *Engine) Positions() *mat.VecDense  { return cloneVec(e.pos) }
func (e *Engine) Velocities() *mat.VecDense { return cloneVec(e.vel) }
func (e *Engine) Forces() *mat.VecDense     { return cloneVec(e.force) }

func (e *Engine) SetPositions(v *mat.VecDense)  { e.pos = cloneVec(v) }
func (e *Engine) SetVelocities(v *mat.VecDense) { e.vel = cloneVec(v) }
func (e *Engine) SetForces(v *mat.VecDense)     { e.force = cloneVec(v) }

func (e *Engine) Masses() *mat.VecDense          { return e.dyn.Masses() }
func (e *Engine) SetMasses(m *mat.VecDense)      { e.dyn.SetMasses(m) }
func (e *Engine) MassLowerLimits() *mat.VecDense { lo, _ := e.dyn.MassLimits(); return lo }
func (e *Engine) MassUpperLimits() *mat.VecDense { _, hi := e.dyn.MassLimits(); return hi }

func (e *Engine) PositionLowerLimits() *mat.VecDense { lo, _ := e.dyn.PositionLimits(); return lo }
func (e *Engine) PositionUpperLimits() *mat.VecDense { _, hi := e.dyn.PositionLimits(); return hi }
func (e *Engine) VelocityLowerLimits() *mat.VecDense { lo, _ := e.dyn.VelocityLimits(); return lo }
func (e *Engine) VelocityUpperLimits() *mat.VecDense { _, hi := e.dyn.VelocityLimits(); return hi }
func (e *Engine) ForceLowerLimits() *mat.VecDense    { lo, _ := e.dyn.ForceLimits(); return lo }
func (e *Engine) ForceUpperLimits() *mat.VecDense    { _, hi := e.dyn.ForceLimits(); return hi }

func (e *Engine) NodeNames() []string { return e.dyn.NodeNames() }

func (e *Engine) NodeFrame(name string) (translation, rotation [3]float64) {
	return e.dyn.NodeFrame(name, e.pos)
}

func (e *Engine) Clone() world.Simulator {
	return &Engine{
		dyn:   e.dyn.Clone(),
		dt:    e.dt,
		pos:   cloneVec(e.pos),
		vel:   cloneVec(e.vel),
		force: cloneVec(e.force),
		step:  e.step,
	}
}

func (e *Engine) Snapshot() *world.Snapshot {
	return world.NewSnapshot(e.pos, e.vel, e.force, e.dyn.Masses())
}

func cloneVec(v *mat.VecDense) *mat.VecDense {
	if v == nil {
		return nil
	}
	out := mat.NewVecDense(v.Len(), nil)
	out.CopyVec(v)
	return out
}

// Step advances the simulator by dt using semi-implicit Euler:
//
//	velNew = vel + dt*accel(pos, vel, force)
//	posNew = pos + dt*velNew
//
// which makes every one of the six BackpropSnapshot Jacobians a closed-form
// function of the system's acceleration partials.
func (e *Engine) Step() (*world.BackpropSnapshot, error) {
	n := e.dyn.Dofs()
	accel := e.dyn.Accel(e.pos, e.vel, e.force)

	velNew := mat.NewVecDense(n, nil)
	velNew.AddScaledVec(e.vel, e.dt, accel)

	posNew := mat.NewVecDense(n, nil)
	posNew.AddScaledVec(e.pos, e.dt, velNew)

	for i := 0; i < n; i++ {
		if math.IsNaN(posNew.AtVec(i)) || math.IsInf(posNew.AtVec(i), 0) ||
			math.IsNaN(velNew.AtVec(i)) || math.IsInf(velNew.AtVec(i), 0) {
			return nil, &errs.SimError{Step: e.step, Time: float64(e.step) * e.dt, Message: "invalid state (NaN/Inf)"}
		}
	}

	dAccelPos, dAccelVel, dAccelForce := e.dyn.AccelJacobians(e.pos, e.vel, e.force)

	identity := eye(n)

	velPos := scaled(dAccelPos, e.dt)
	velVel := addDense(identity, scaled(dAccelVel, e.dt))
	velForce := scaled(dAccelForce, e.dt)

	posPos := addDense(identity, scaled(velPos, e.dt))
	posVel := scaled(velVel, e.dt)
	posForce := scaled(velForce, e.dt)

	e.pos = posNew
	e.vel = velNew
	e.step++

	return &world.BackpropSnapshot{
		PosPos:   posPos,
		PosVel:   posVel,
		PosForce: posForce,
		VelPos:   velPos,
		VelVel:   velVel,
		VelForce: velForce,
	}, nil
}

func eye(n int) *mat.Dense {
	out := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		out.Set(i, i, 1)
	}
	return out
}

func scaled(m *mat.Dense, s float64) *mat.Dense {
	out := mat.NewDense(m.RawMatrix().Rows, m.RawMatrix().Cols, nil)
	out.Scale(s, m)
	return out
}

func addDense(a, b *mat.Dense) *mat.Dense {
	r, c := a.Dims()
	out := mat.NewDense(r, c, nil)
	out.Add(a, b)
	return out
}
