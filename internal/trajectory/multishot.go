// Package trajectory assembles single shots into the Problem contract an
// outer interior-point solver polls: combined flattening, knot-point defect
// constraints, dense and sparse Jacobian assembly, and optional per-shot
// parallel execution with a bit-identical-to-serial contract.
package trajectory

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajopt/internal/logging"
	"github.com/san-kum/trajopt/internal/loss"
	"github.com/san-kum/trajopt/internal/mapping"
	"github.com/san-kum/trajopt/internal/rollout"
	"github.com/san-kum/trajopt/internal/shot"
	"github.com/san-kum/trajopt/internal/world"
)

// MultiShot composes an ordered run of single shots with knot-point defect
// constraints coupling each adjacent pair. Every shot after the first has
// its starting state forced into the decision variables, since the defect
// constraint is what pins it to the previous shot's predicted end state.
type MultiShot struct {
	sim      world.Simulator
	mappings *mapping.Registry
	shots    []*shot.SingleShot

	objective   *loss.Loss
	constraints []*loss.Loss

	// knotMapping is the mapping whose coordinates knot-point defects are
	// measured in; it need not be the registry's current representation.
	knotMapping string
	tuneMass    bool

	parallel bool
	log      *logging.Logger

	rollouts  []rollout.MutableRollout
	finalJacs []*mat.Dense

	sparsityRows []int
	sparsityCols []int
}

// NewMultiShot splits totalSteps into ceil(totalSteps/shotLength) shots of
// size shotLength (the last shot taking the remainder). The first shot's
// tuneStartingState is the caller's flag; every later shot's is forced on.
func NewMultiShot(sim world.Simulator, mappings *mapping.Registry, objective *loss.Loss, constraints []*loss.Loss, totalSteps, shotLength int, tuneStartingState, tuneMass, parallel bool, log *logging.Logger) *MultiShot {
	n := (totalSteps + shotLength - 1) / shotLength
	shots := make([]*shot.SingleShot, 0, n)
	remaining := totalSteps
	for i := 0; i < n; i++ {
		length := shotLength
		if remaining < shotLength {
			length = remaining
		}
		tune := tuneStartingState
		if i > 0 {
			tune = true
		}
		// Mass is a property of the physical system, not of any one shot:
		// only the first shot owns a tunable mass block in the flat vector;
		// every other shot has its mass forced to alias that same block.
		shots = append(shots, shot.NewSingleShot(sim, mappings, length, tune, tuneMass && i == 0, log))
		remaining -= length
	}
	for i := 1; i < len(shots); i++ {
		shots[i].ForceMass(shots[0].MassBlock())
	}
	return &MultiShot{
		sim:         sim,
		mappings:    mappings,
		shots:       shots,
		objective:   objective,
		constraints: constraints,
		knotMapping: mappings.RepresentationName(),
		tuneMass:    tuneMass,
		parallel:    parallel,
		log:         log,
	}
}

// resyncMass re-aliases every shot's mass block to the first shot's tunable
// mass after an Unflatten replaces that block with a freshly allocated
// vector.
func (m *MultiShot) resyncMass() {
	if !m.tuneMass || len(m.shots) < 2 {
		return
	}
	shared := m.shots[0].MassBlock()
	for i := 1; i < len(m.shots); i++ {
		m.shots[i].ForceMass(shared)
	}
}

// Simulator returns the world.Simulator every shot drives, for callers that
// need to re-run forward kinematics or re-project a recorded trajectory
// outside the problem's own poll methods.
func (m *MultiShot) Simulator() world.Simulator { return m.sim }

// Mappings returns the mapping registry every shot shares, for callers that
// need to look up a mapping by name (e.g. to reproject a rollout into it).
func (m *MultiShot) Mappings() *mapping.Registry { return m.mappings }

func (m *MultiShot) TotalSteps() int {
	total := 0
	for _, s := range m.shots {
		total += s.Steps()
	}
	return total
}

func (m *MultiShot) stateDim() int {
	rep := m.mappings.Get(m.knotMapping)
	return rep.PosDim() + rep.VelDim()
}

// FlatDim is the sum of every sub-shot's own flat dimension.
func (m *MultiShot) FlatDim() int {
	dim := 0
	for _, s := range m.shots {
		dim += s.FlatDim()
	}
	return dim
}

// ConstraintDim is one row per parent constraint plus one stateDim block per
// adjacent shot pair's knot defect.
func (m *MultiShot) ConstraintDim() int {
	return len(m.constraints) + (len(m.shots)-1)*m.stateDim()
}

func (m *MultiShot) computeOffsets() []int {
	offsets := make([]int, len(m.shots))
	o := 0
	for i, s := range m.shots {
		offsets[i] = o
		o += s.FlatDim()
	}
	return offsets
}

func (m *MultiShot) Flatten(out *mat.VecDense) {
	offset := 0
	for _, s := range m.shots {
		offset = s.Flatten(out, offset)
	}
}

func (m *MultiShot) Unflatten(in *mat.VecDense) {
	offset := 0
	for _, s := range m.shots {
		offset = s.Unflatten(in, offset)
	}
	m.resyncMass()
}

func (m *MultiShot) InitialGuess() *mat.VecDense {
	out := mat.NewVecDense(m.FlatDim(), nil)
	m.Flatten(out)
	return out
}

func (m *MultiShot) VariableBounds() (lower, upper *mat.VecDense) {
	lower = mat.NewVecDense(m.FlatDim(), nil)
	upper = mat.NewVecDense(m.FlatDim(), nil)
	offset := 0
	for _, s := range m.shots {
		offset = s.Bounds(lower, upper, offset)
	}
	return lower, upper
}

// ConstraintBounds returns the feasible range for every constraint row:
// each parent constraint's registered [lower,upper], then zero for every
// knot-defect component.
func (m *MultiShot) ConstraintBounds() (lower, upper *mat.VecDense) {
	dim := m.ConstraintDim()
	lower = mat.NewVecDense(dim, nil)
	upper = mat.NewVecDense(dim, nil)
	for i, c := range m.constraints {
		lo, hi := c.Bounds()
		lower.SetVec(i, lo)
		upper.SetVec(i, hi)
	}
	// knot defect rows default to (0, 0), already zero-valued.
	return lower, upper
}

func (m *MultiShot) mappingDims() []rollout.Dims {
	dims := make([]rollout.Dims, 0, len(m.mappings.Names()))
	for _, name := range m.mappings.Names() {
		mp := m.mappings.Get(name)
		dims = append(dims, rollout.Dims{Name: name, PosDim: mp.PosDim(), VelDim: mp.VelDim(), ForceDim: mp.ForceDim()})
	}
	return dims
}

// unrollAll runs every shot's Unroll (serially or in parallel, per m.parallel)
// and records each shot's own rollout plus final-state Jacobian for later
// constraint/gradient assembly. It returns the first simulator error
// encountered, if any.
func (m *MultiShot) unrollAll() error {
	if m.parallel {
		return m.runParallel()
	}

	dims := m.mappingDims()
	massDim := m.sim.Masses().Len()
	m.rollouts = make([]rollout.MutableRollout, len(m.shots))
	m.finalJacs = make([]*mat.Dense, len(m.shots))

	for i, s := range m.shots {
		r := rollout.NewOwning(s.Steps(), dims, massDim, m.log)
		if err := s.Unroll(r); err != nil {
			return err
		}
		m.rollouts[i] = r
		m.finalJacs[i] = s.FinalStateJacobian()
	}
	return nil
}

// combinedRollout concatenates every shot's recorded rollout into one
// totalSteps-wide buffer, in shot order. This is the "with knots"
// reconstruction: each shot's columns come from its own independent unroll,
// not a single continuous simulation.
func (m *MultiShot) combinedRollout() rollout.MutableRollout {
	dims := m.mappingDims()
	massDim := m.sim.Masses().Len()
	out := rollout.NewOwning(m.TotalSteps(), dims, massDim, m.log)
	col := 0
	for i, r := range m.rollouts {
		steps := m.shots[i].Steps()
		for _, d := range dims {
			copyColumns(out.MutablePoses(d.Name), r.Poses(d.Name), col, steps)
			copyColumns(out.MutableVels(d.Name), r.Vels(d.Name), col, steps)
			copyColumns(out.MutableForces(d.Name), r.Forces(d.Name), col, steps)
		}
		col += steps
	}
	return out
}

// GetStatesWithKnots is the combined, per-shot reconstruction: each shot's
// columns are exactly what its own Unroll produced.
func (m *MultiShot) GetStatesWithKnots() (rollout.Rollout, error) {
	if err := m.unrollAll(); err != nil {
		return nil, err
	}
	return m.combinedRollout(), nil
}

// GetStatesWithoutKnots restores only the first shot's start state and
// mass block, then replays every shot's stored forces in order through one continuous
// simulation — the trajectory the solver would actually see once defects
// close to zero.
func (m *MultiShot) GetStatesWithoutKnots() (rollout.Rollout, error) {
	snap := m.sim.Snapshot()
	defer snap.Restore(m.sim)

	rep := m.mappings.Representation()
	startPos, startVel := m.shots[0].StartState()
	rep.WritePositions(m.sim, startPos)
	rep.WriteVelocities(m.sim, startVel)
	if mass := m.shots[0].MassBlock(); mass != nil {
		m.sim.SetMasses(mass)
	}

	dims := m.mappingDims()
	massDim := m.sim.Masses().Len()
	out := rollout.NewOwning(m.TotalSteps(), dims, massDim, m.log)

	col := 0
	for _, s := range m.shots {
		forces := s.Forces()
		for t := 0; t < s.Steps(); t++ {
			rep.WriteForces(m.sim, columnOf(forces, t, rep.ForceDim()))
			if _, err := m.sim.Step(); err != nil {
				return nil, err
			}
			for _, name := range m.mappings.Names() {
				mp := m.mappings.Get(name)
				setColumn(out.MutablePoses(name), col, mp.ReadPositions(m.sim))
				setColumn(out.MutableVels(name), col, mp.ReadVelocities(m.sim))
				setColumn(out.MutableForces(name), col, mp.ReadForces(m.sim))
			}
			col++
		}
	}
	return out, nil
}

// ContinuityGap reports the largest absolute difference, in the current
// representation mapping's position coordinates, between the knot-connected
// reconstruction (GetStatesWithKnots, each shot's own independent unroll)
// and the continuously replayed one (GetStatesWithoutKnots, one simulation
// run from the first shot's start state through every shot's stored
// forces). It is zero exactly when every knot defect constraint is
// satisfied, and grows with however far the decision vector currently
// leaves them open — the diagnostic a caller uses to judge whether a solve
// that hit its iteration limit still left the shots visibly disconnected.
func (m *MultiShot) ContinuityGap() (float64, error) {
	withKnots, err := m.GetStatesWithKnots()
	if err != nil {
		return 0, err
	}
	withoutKnots, err := m.GetStatesWithoutKnots()
	if err != nil {
		return 0, err
	}

	name := m.mappings.RepresentationName()
	a := withKnots.Poses(name)
	b := withoutKnots.Poses(name)
	rows, cols := a.Dims()

	worst := 0.0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			d := a.At(i, j) - b.At(i, j)
			if d < 0 {
				d = -d
			}
			if d > worst {
				worst = d
			}
		}
	}
	return worst, nil
}

// massGradientFD computes the objective's gradient with respect to the
// shared mass block by centered finite differences: no BackpropSnapshot
// exposes an analytic d(accel)/d(mass) term, so recovering a mass parameter
// re-unrolls the whole multi-shot trajectory with each mass component
// perturbed, mirroring the fallback loss.Loss itself uses for any quantity
// it cannot differentiate analytically.
func (m *MultiShot) massGradientFD(eps float64) (*mat.VecDense, error) {
	original := cloneVec(m.shots[0].MassBlock())
	dim := original.Len()
	grad := mat.NewVecDense(dim, nil)

	for i := 0; i < dim; i++ {
		perturbed := cloneVec(original)
		perturbed.SetVec(i, original.AtVec(i)+eps)
		m.setSharedMass(perturbed)
		plus, err := m.evalObjectiveOnly()
		if err != nil {
			m.setSharedMass(original)
			return nil, err
		}

		perturbed = cloneVec(original)
		perturbed.SetVec(i, original.AtVec(i)-eps)
		m.setSharedMass(perturbed)
		minus, err := m.evalObjectiveOnly()
		if err != nil {
			m.setSharedMass(original)
			return nil, err
		}

		grad.SetVec(i, (plus-minus)/(2*eps))
	}
	m.setSharedMass(original)
	return grad, nil
}

func (m *MultiShot) setSharedMass(v *mat.VecDense) {
	m.shots[0].SetMassBlock(v)
	for i := 1; i < len(m.shots); i++ {
		m.shots[i].ForceMass(v)
	}
}

func (m *MultiShot) evalObjectiveOnly() (float64, error) {
	if err := m.unrollAll(); err != nil {
		return 0, err
	}
	return m.objective.Eval(m.combinedRollout()), nil
}

func cloneVec(v *mat.VecDense) *mat.VecDense {
	out := mat.NewVecDense(v.Len(), nil)
	out.CopyVec(v)
	return out
}
