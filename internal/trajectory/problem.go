package trajectory

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajopt/internal/rollout"
)

// massFDStep is the finite-difference step used for the shared mass
// block's gradient and Jacobian columns, matching loss.Loss's own force-
// column step: mass-tuning scenarios in this engine perturb quantities on
// the same order of magnitude as force.
const massFDStep = 1e-6

// Problem is the contract an outer interior-point solver polls. MultiShot
// implements it directly — a "single-shot problem" is simply a MultiShot
// built with one shot, per NewMultiShot's own construction rule.
type Problem interface {
	FlatDim() int
	ConstraintDim() int
	Flatten(*mat.VecDense)
	Unflatten(*mat.VecDense)
	UpperBounds() *mat.VecDense
	LowerBounds() *mat.VecDense
	ConstraintUpperBounds() *mat.VecDense
	ConstraintLowerBounds() *mat.VecDense
	InitialGuess() *mat.VecDense
	ComputeLoss(x *mat.VecDense) (float64, error)
	BackpropGradient(x *mat.VecDense) (*mat.VecDense, error)
	ComputeConstraints(x *mat.VecDense) (*mat.VecDense, error)
	BackpropJacobian(x *mat.VecDense) (*mat.Dense, error)
	NumberNonZeroJacobian() int
	JacobianSparsityStructure() (rows, cols []int)
	GetSparseJacobian(x *mat.VecDense) ([]float64, error)
}

func (m *MultiShot) UpperBounds() *mat.VecDense { _, hi := m.VariableBounds(); return hi }
func (m *MultiShot) LowerBounds() *mat.VecDense { lo, _ := m.VariableBounds(); return lo }

func (m *MultiShot) ConstraintUpperBounds() *mat.VecDense { _, hi := m.ConstraintBounds(); return hi }
func (m *MultiShot) ConstraintLowerBounds() *mat.VecDense { lo, _ := m.ConstraintBounds(); return lo }

// ComputeLoss unflattens x, unrolls every shot, and evaluates the objective
// over the with-knots reconstruction of the combined rollout.
func (m *MultiShot) ComputeLoss(x *mat.VecDense) (float64, error) {
	m.Unflatten(x)
	if err := m.unrollAll(); err != nil {
		return 0, err
	}
	return m.objective.Eval(m.combinedRollout()), nil
}

// BackpropGradient unflattens x, unrolls every shot, and backpropagates the
// objective's per-timestep gradient through each shot's dynamics chain,
// adding the shared mass block's finite-difference gradient when
// mass-tuning is enabled.
func (m *MultiShot) BackpropGradient(x *mat.VecDense) (*mat.VecDense, error) {
	m.Unflatten(x)
	if err := m.unrollAll(); err != nil {
		return nil, err
	}
	combined := m.combinedRollout()

	gradOut := rollout.NewOwning(m.TotalSteps(), m.mappingDims(), m.sim.Masses().Len(), m.log)
	m.objective.EvalWithGradient(combined, gradOut)

	outFlat := mat.NewVecDense(m.FlatDim(), nil)
	offsets := m.computeOffsets()

	col := 0
	for i, s := range m.shots {
		steps := s.Steps()
		window := rollout.NewConstSlice(gradOut, col, steps)
		s.GradientBackprop(window, outFlat, offsets[i])
		col += steps
	}

	if m.tuneMass {
		massGrad, err := m.massGradientFD(massFDStep)
		if err != nil {
			return nil, err
		}
		massOffset := offsets[0] + m.shots[0].FlatDim() - massGrad.Len()
		for i := 0; i < massGrad.Len(); i++ {
			outFlat.SetVec(massOffset+i, massGrad.AtVec(i))
		}
	}
	return outFlat, nil
}

// ComputeConstraints unflattens x, unrolls every shot, and returns
// [ parent constraints | knot defects ] as a single vector.
func (m *MultiShot) ComputeConstraints(x *mat.VecDense) (*mat.VecDense, error) {
	m.Unflatten(x)
	if err := m.unrollAll(); err != nil {
		return nil, err
	}
	out := mat.NewVecDense(m.ConstraintDim(), nil)

	combined := m.combinedRollout()
	for i, c := range m.constraints {
		out.SetVec(i, c.Eval(combined))
	}

	row := len(m.constraints)
	for i := 0; i < len(m.shots)-1; i++ {
		defect := m.knotDefect(i)
		for j := 0; j < defect.Len(); j++ {
			out.SetVec(row+j, defect.AtVec(j))
		}
		row += defect.Len()
	}
	return out, nil
}

// knotDefect returns finalState(shot_i) - startState(shot_{i+1}) in the
// knot mapping's coordinates. unrollAll must have run first.
func (m *MultiShot) knotDefect(i int) *mat.VecDense {
	knot := m.mappings.Get(m.knotMapping)
	dim := knot.PosDim() + knot.VelDim()
	out := mat.NewVecDense(dim, nil)

	steps := m.shots[i].Steps()
	finalPos := colFromRollout(m.rollouts[i].Poses(m.knotMapping), steps-1, knot.PosDim())
	finalVel := colFromRollout(m.rollouts[i].Vels(m.knotMapping), steps-1, knot.VelDim())

	nextPos, nextVel := m.shots[i+1].StartState()

	for j := 0; j < knot.PosDim(); j++ {
		out.SetVec(j, finalPos.AtVec(j)-nextPos.AtVec(j))
	}
	for j := 0; j < knot.VelDim(); j++ {
		out.SetVec(knot.PosDim()+j, finalVel.AtVec(j)-nextVel.AtVec(j))
	}
	return out
}

func colFromRollout(m mat.Matrix, t, dim int) *mat.VecDense {
	out := mat.NewVecDense(dim, nil)
	for i := 0; i < dim; i++ {
		out.SetVec(i, m.At(i, t))
	}
	return out
}

// BackpropJacobian assembles the dense constraintDim x flatDim Jacobian:
// each parent constraint's row comes from the same backward chain as the
// objective gradient; each knot pair's block is shot i's final-state
// Jacobian placed at shot i's columns, plus -I placed at shot i+1's
// start-state columns.
func (m *MultiShot) BackpropJacobian(x *mat.VecDense) (*mat.Dense, error) {
	m.Unflatten(x)
	if err := m.unrollAll(); err != nil {
		return nil, err
	}
	out := mat.NewDense(m.ConstraintDim(), m.FlatDim(), nil)
	offsets := m.computeOffsets()

	combined := m.combinedRollout()
	for ci, c := range m.constraints {
		gradOut := rollout.NewOwning(m.TotalSteps(), m.mappingDims(), m.sim.Masses().Len(), m.log)
		c.EvalWithGradient(combined, gradOut)

		row := mat.NewVecDense(m.FlatDim(), nil)
		col := 0
		for i, s := range m.shots {
			steps := s.Steps()
			window := rollout.NewConstSlice(gradOut, col, steps)
			s.GradientBackprop(window, row, offsets[i])
			col += steps
		}
		for j := 0; j < row.Len(); j++ {
			out.Set(ci, j, row.AtVec(j))
		}
	}

	stateDim := m.stateDim()
	rowBase := len(m.constraints)
	for i := 0; i < len(m.shots)-1; i++ {
		jac := m.finalJacs[i]
		jr, jc := jac.Dims()
		for r := 0; r < jr; r++ {
			for cidx := 0; cidx < jc; cidx++ {
				out.Set(rowBase+r, offsets[i]+cidx, jac.At(r, cidx))
			}
		}
		for d := 0; d < stateDim; d++ {
			out.Set(rowBase+d, offsets[i+1]+d, -1)
		}
		rowBase += stateDim
	}
	return out, nil
}
