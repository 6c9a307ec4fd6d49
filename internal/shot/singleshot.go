// Package shot implements the single-shot building block of trajectory
// optimization: one contiguous run of a world.Simulator, its flattened
// decision variables, and the backward chain that turns a per-timestep loss
// gradient into a flat gradient the outer solver consumes.
package shot

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajopt/internal/errs"
	"github.com/san-kum/trajopt/internal/logging"
	"github.com/san-kum/trajopt/internal/mapping"
	"github.com/san-kum/trajopt/internal/rollout"
	"github.com/san-kum/trajopt/internal/world"
)

// SingleShot owns one unbroken run of steps simulator ticks: a starting
// state and a force-per-timestep schedule, both expressed in the mapping
// registry's current representation, plus an optional mass parameter block.
type SingleShot struct {
	sim      world.Simulator
	mappings *mapping.Registry
	steps    int

	tuneStartingState bool
	tuneMass          bool

	startPos *mat.VecDense // representation-space, len repPosDim
	startVel *mat.VecDense // representation-space, len repVelDim
	forces   *mat.Dense    // representation-space, repForceDim x steps
	mass     *mat.VecDense // native, len sim mass dim

	log *logging.Logger

	// snapshots holds the native-space linearization of the most recent
	// Unroll call, one entry per step, consumed by FinalStateJacobian and
	// GradientBackprop. Unroll must run before either is called.
	snapshots []*world.BackpropSnapshot
}

// NewSingleShot builds a shot of the given length over sim's current state,
// using mappings' current representation for the decision-variable layout.
func NewSingleShot(sim world.Simulator, mappings *mapping.Registry, steps int, tuneStartingState, tuneMass bool, log *logging.Logger) *SingleShot {
	rep := mappings.Representation()
	s := &SingleShot{
		sim:               sim,
		mappings:          mappings,
		steps:             steps,
		tuneStartingState: tuneStartingState,
		tuneMass:          tuneMass,
		startPos:          rep.ReadPositions(sim),
		startVel:          rep.ReadVelocities(sim),
		forces:            mat.NewDense(rep.ForceDim(), steps, nil),
		mass:              cloneVec(sim.Masses()),
		log:               log,
	}
	return s
}

// ForceMass overrides the mass Unroll applies regardless of tuneMass and
// excludes it from this shot's flat-variable layout. Multi-shot problems
// with mass-tuning enabled call this on every shot but the one that owns
// the tunable mass block, since mass is a property of the physical system
// being simulated, not of any one shot.
func (s *SingleShot) ForceMass(m *mat.VecDense) {
	s.mass = m
	s.tuneMass = false
}

func (s *SingleShot) Steps() int { return s.steps }

// CloneWithSimulator returns a shot with the same decision variables and
// configuration bound to a different simulator instance, with no recorded
// snapshots. Parallel multi-shot execution calls this once per worker so
// each goroutine owns its own BackpropSnapshot slice — sharing a single
// *SingleShot across goroutines would race on that field.
func (s *SingleShot) CloneWithSimulator(sim world.Simulator) *SingleShot {
	return &SingleShot{
		sim:               sim,
		mappings:          s.mappings,
		steps:             s.steps,
		tuneStartingState: s.tuneStartingState,
		tuneMass:          s.tuneMass,
		startPos:          s.startPos,
		startVel:          s.startVel,
		forces:            s.forces,
		mass:              s.mass,
		log:               s.log,
	}
}

func (s *SingleShot) StartState() (pos, vel *mat.VecDense) { return s.startPos, s.startVel }

func (s *SingleShot) SetStartState(pos, vel *mat.VecDense) {
	s.startPos, s.startVel = pos, vel
}

func (s *SingleShot) Forces() *mat.Dense { return s.forces }

func (s *SingleShot) SetForces(f *mat.Dense) { s.forces = f }

func (s *SingleShot) MassBlock() *mat.VecDense { return s.mass }

func (s *SingleShot) SetMassBlock(m *mat.VecDense) { s.mass = m }

// Snapshots returns the native-space linearization Unroll recorded on its
// most recent call, one entry per step.
func (s *SingleShot) Snapshots() []*world.BackpropSnapshot { return s.snapshots }

// SetSnapshots installs a linearization computed elsewhere (a parallel
// worker's own simulator clone, say) as this shot's own, so that
// GradientBackprop and FinalStateJacobian can run against the shot that
// owns the flat decision variables instead of the throwaway clone that did
// the actual unrolling.
func (s *SingleShot) SetSnapshots(snaps []*world.BackpropSnapshot) { s.snapshots = snaps }

// FlatDim is the length of this shot's contribution to a problem's flat
// decision vector: start state only when tuneStartingState is set, one
// force column per step always, and the mass block only when tuneMass is
// set.
func (s *SingleShot) FlatDim() int {
	rep := s.mappings.Representation()
	dim := rep.ForceDim() * s.steps
	if s.tuneStartingState {
		dim += rep.PosDim() + rep.VelDim()
	}
	if s.tuneMass {
		dim += s.sim.Masses().Len()
	}
	return dim
}

// Flatten writes this shot's decision variables into out starting at
// offset, in start-state, forces, mass order, and returns the next free
// offset.
func (s *SingleShot) Flatten(out *mat.VecDense, offset int) int {
	if s.tuneStartingState {
		offset = copyInto(out, offset, s.startPos)
		offset = copyInto(out, offset, s.startVel)
	}
	rep := s.mappings.Representation()
	for t := 0; t < s.steps; t++ {
		offset = copyInto(out, offset, colOf(s.forces, t, rep.ForceDim()))
	}
	if s.tuneMass {
		offset = copyInto(out, offset, s.mass)
	}
	return offset
}

// Unflatten is Flatten's inverse: it reads this shot's block out of in
// starting at offset and returns the next free offset.
func (s *SingleShot) Unflatten(in *mat.VecDense, offset int) int {
	rep := s.mappings.Representation()
	if s.tuneStartingState {
		s.startPos, offset = sliceFrom(in, offset, rep.PosDim())
		s.startVel, offset = sliceFrom(in, offset, rep.VelDim())
	}
	for t := 0; t < s.steps; t++ {
		var col *mat.VecDense
		col, offset = sliceFrom(in, offset, rep.ForceDim())
		setCol(s.forces, t, col)
	}
	if s.tuneMass {
		s.mass, offset = sliceFrom(in, offset, s.sim.Masses().Len())
	}
	return offset
}

// Bounds writes this shot's lower/upper flat bounds into lower/upper
// starting at offset, in the same layout Flatten uses, and returns the next
// free offset.
func (s *SingleShot) Bounds(lower, upper *mat.VecDense, offset int) int {
	rep := s.mappings.Representation()
	if s.tuneStartingState {
		posLo, posHi := rep.PositionBounds(s.sim)
		velLo, velHi := rep.VelocityBounds(s.sim)
		offset = copyInto(lower, offset, posLo)
		copyInto(upper, offset-rep.PosDim(), posHi)
		offset = copyInto(lower, offset, velLo)
		copyInto(upper, offset-rep.VelDim(), velHi)
	}
	forceLo, forceHi := rep.ForceBounds(s.sim)
	for t := 0; t < s.steps; t++ {
		offset = copyInto(lower, offset, forceLo)
		copyInto(upper, offset-rep.ForceDim(), forceHi)
	}
	if s.tuneMass {
		massLo, massHi := s.sim.MassLowerLimits(), s.sim.MassUpperLimits()
		offset = copyInto(lower, offset, massLo)
		copyInto(upper, offset-massLo.Len(), massHi)
	}
	return offset
}

// Unroll runs sim forward for Steps() ticks from this shot's start state,
// writing forces[:, t] at every step via the current representation mapping,
// and records every registered mapping's observation of the resulting state
// into out. The simulator's state is restored to whatever it held on entry
// on every exit path, including a mid-unroll Step failure.
func (s *SingleShot) Unroll(out rollout.MutableRollout) error {
	snap := s.sim.Snapshot()
	defer snap.Restore(s.sim)

	if s.mass != nil {
		s.sim.SetMasses(s.mass)
	}

	rep := s.mappings.Representation()
	rep.WritePositions(s.sim, s.startPos)
	rep.WriteVelocities(s.sim, s.startVel)

	s.snapshots = make([]*world.BackpropSnapshot, s.steps)

	for t := 0; t < s.steps; t++ {
		rep.WriteForces(s.sim, colOf(s.forces, t, rep.ForceDim()))

		bp, err := s.sim.Step()
		if err != nil {
			return err
		}
		s.snapshots[t] = bp

		for _, name := range s.mappings.Names() {
			m := s.mappings.Get(name)
			setCol(out.MutablePoses(name), t, m.ReadPositions(s.sim))
			setCol(out.MutableVels(name), t, m.ReadVelocities(s.sim))
			setCol(out.MutableForces(name), t, m.ReadForces(s.sim))
		}
	}
	return nil
}

// FinalStateJacobian returns the dense Jacobian of the shot's final
// representation-space (pos, vel) with respect to its flat decision
// variables, in the same start/forces/mass layout Flatten uses. Unroll must
// have run first. The representation mapping must be bijective over the
// simulator's native state (see mapping.IsBijective); the mass block's
// columns are left zero here — its gradient has no closed form and is
// obtained separately via MassGradientFD.
func (s *SingleShot) FinalStateJacobian() *mat.Dense {
	rep, lin := s.linearRepresentation()
	n := s.sim.NumDofs()

	rows := rep.PosDim() + rep.VelDim()
	out := mat.NewDense(rows, s.FlatDim(), nil)

	sPos := lin.PosMatrix(s.sim)
	sVel := lin.VelMatrix(s.sim)
	sForce := lin.ForceMatrix(s.sim)

	// suffix holds the product of per-step state transition matrices A_k
	// for k strictly greater than the step currently being processed, so
	// step t's force columns are suffix*B_t and, once the loop ends, suffix
	// is d(final state)/d(start state).
	suffix := identity2n(n)

	forceCols := make([]*mat.Dense, s.steps)
	for t := s.steps - 1; t >= 0; t-- {
		bp := s.snapshots[t]
		a := stackA(bp, n)
		b := stackB(bp, n)

		nativeCols := mat.NewDense(2*n, n, nil)
		nativeCols.Mul(suffix, b)
		grad := mat.NewDense(2*n, sForce.RawMatrix().Rows, nil)
		grad.Mul(nativeCols, sForce.T()) // forceDim columns: native->rep via right-multiply by S_force^T
		forceCols[t] = grad

		next := mat.NewDense(2*n, 2*n, nil)
		next.Mul(suffix, a)
		suffix = next
	}

	offset := 0
	if s.tuneStartingState {
		// d(X_T native)/d(X_0 native) is `suffix`; project both sides into
		// representation space: left by block-diag(sPos,sVel), right by
		// block-diag(sPos,sVel)^T since the mapping is bijective.
		proj := projectState(suffix, sPos, sVel, n)
		setBlock(out, 0, offset, proj)
		offset += rep.PosDim() + rep.VelDim()
	}
	for t := 0; t < s.steps; t++ {
		proj := projectRows(forceCols[t], sPos, sVel, n)
		setBlock(out, 0, offset, proj)
		offset += rep.ForceDim()
	}
	// mass columns (offset..FlatDim()) left zero; see MassGradientFD.
	return out
}

// GradientBackprop runs the reverse-mode adjoint of the shot's dynamics
// chain: lossGrad supplies, for every step and every registered mapping,
// the loss's gradient with respect to that step's observed pos/vel/force
// (the same layout loss.Loss.EvalWithGradient writes into). It accumulates
// the flat gradient of the decision variables this shot owns into outFlat
// starting at offset, and returns the next free offset. The mass block's
// segment of outFlat (when tuneMass is set) is left untouched; callers
// obtain it from MassGradientFD.
func (s *SingleShot) GradientBackprop(lossGrad rollout.Rollout, outFlat *mat.VecDense, offset int) int {
	rep, lin := s.linearRepresentation()
	n := s.sim.NumDofs()

	sPos := lin.PosMatrix(s.sim)
	sVel := lin.VelMatrix(s.sim)
	sForce := lin.ForceMatrix(s.sim)

	lambdaPos := mat.NewVecDense(n, nil)
	lambdaVel := mat.NewVecDense(n, nil)

	forceGradStart := offset
	if s.tuneStartingState {
		forceGradStart += rep.PosDim() + rep.VelDim()
	}

	for t := s.steps - 1; t >= 0; t-- {
		gradPos := colFromMatrix(lossGrad.Poses(rep.Name()), t, rep.PosDim())
		gradVel := colFromMatrix(lossGrad.Vels(rep.Name()), t, rep.VelDim())
		gradForceDirect := colFromMatrix(lossGrad.Forces(rep.Name()), t, rep.ForceDim())

		lambdaPos.AddScaledVec(lambdaPos, 1, matVec(sPos, gradPos, true))
		lambdaVel.AddScaledVec(lambdaVel, 1, matVec(sVel, gradVel, true))

		bp := s.snapshots[t]

		forceNative := mat.NewVecDense(n, nil)
		forceNative.MulVec(bp.PosForce.T(), lambdaPos)
		tmp := mat.NewVecDense(n, nil)
		tmp.MulVec(bp.VelForce.T(), lambdaVel)
		forceNative.AddVec(forceNative, tmp)

		forceRep := matVec(sForce, forceNative, false)
		forceRep.AddVec(forceRep, gradForceDirect)
		writeInto(outFlat, forceGradStart+t*rep.ForceDim(), forceRep)

		newPos := mat.NewVecDense(n, nil)
		newPos.MulVec(bp.PosPos.T(), lambdaPos)
		tmp2 := mat.NewVecDense(n, nil)
		tmp2.MulVec(bp.VelPos.T(), lambdaVel)
		newPos.AddVec(newPos, tmp2)

		newVel := mat.NewVecDense(n, nil)
		newVel.MulVec(bp.PosVel.T(), lambdaPos)
		tmp3 := mat.NewVecDense(n, nil)
		tmp3.MulVec(bp.VelVel.T(), lambdaVel)
		newVel.AddVec(newVel, tmp3)

		lambdaPos, lambdaVel = newPos, newVel
	}

	if s.tuneStartingState {
		startPosGrad := matVec(sPos, lambdaPos, false)
		startVelGrad := matVec(sVel, lambdaVel, false)
		writeInto(outFlat, offset, startPosGrad)
		writeInto(outFlat, offset+rep.PosDim(), startVelGrad)
	}

	return s.FlatDim() + offset
}

// MassGradientFD computes this shot's mass-block gradient by centered
// finite differences: the Simulator interface exposes no analytic
// d(accel)/d(mass) term, so mass-tuning gradients re-unroll the whole shot
// with each mass component perturbed, the same fallback loss.Loss already
// uses for any quantity it cannot differentiate analytically.
func (s *SingleShot) MassGradientFD(eval func(rollout.Rollout) float64, buildRollout func() rollout.MutableRollout, eps float64) *mat.VecDense {
	dim := s.mass.Len()
	grad := mat.NewVecDense(dim, nil)
	if dim == 0 {
		return grad
	}
	original := cloneVec(s.mass)
	for i := 0; i < dim; i++ {
		s.mass.SetVec(i, original.AtVec(i)+eps)
		rp := buildRollout()
		if err := s.Unroll(rp); err != nil {
			s.log.Warn("mass gradient FD: plus-perturbation unroll failed", errField(err))
		}
		plus := eval(rp)

		s.mass.SetVec(i, original.AtVec(i)-eps)
		rm := buildRollout()
		if err := s.Unroll(rm); err != nil {
			s.log.Warn("mass gradient FD: minus-perturbation unroll failed", errField(err))
		}
		minus := eval(rm)

		grad.SetVec(i, (plus-minus)/(2*eps))
	}
	s.mass.CopyVec(original)
	return grad
}

func (s *SingleShot) linearRepresentation() (world.Mapping, mapping.Linear) {
	rep := s.mappings.Representation()
	lin, ok := rep.(mapping.Linear)
	if !ok || !mapping.IsBijective(rep, s.sim) {
		errs.DimensionMismatch("shot: differentiable ops require a bijective linear representation mapping", s.sim.NumDofs(), rep.PosDim())
	}
	return rep, lin
}

func cloneVec(v *mat.VecDense) *mat.VecDense {
	out := mat.NewVecDense(v.Len(), nil)
	out.CopyVec(v)
	return out
}
