package shot_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajopt/internal/dynamics"
	"github.com/san-kum/trajopt/internal/logging"
	"github.com/san-kum/trajopt/internal/mapping"
	"github.com/san-kum/trajopt/internal/rollout"
	"github.com/san-kum/trajopt/internal/shot"
	"github.com/san-kum/trajopt/internal/testutil"
)

func newBoxShot(steps int, tuneStart, tuneMass bool) (*shot.SingleShot, *mapping.Registry) {
	eng := dynamics.NewEngine(dynamics.NewBox(2.0), 0.1)
	regs := mapping.NewRegistry(1)
	s := shot.NewSingleShot(eng, regs, steps, tuneStart, tuneMass, logging.Noop())
	return s, regs
}

func buildRollout(regs *mapping.Registry, steps int) rollout.MutableRollout {
	return rollout.NewOwning(steps, []rollout.Dims{{Name: mapping.IdentityName, PosDim: 1, VelDim: 1, ForceDim: 1}}, 1, logging.Noop())
}

func TestFlattenUnflattenRoundTrips(t *testing.T) {
	s, _ := newBoxShot(3, true, true)
	s.SetForces(mat.NewDense(1, 3, []float64{1, 2, 3}))

	flat := mat.NewVecDense(s.FlatDim(), nil)
	next := s.Flatten(flat, 0)
	assert.Equal(t, s.FlatDim(), next)

	s2, _ := newBoxShot(3, true, true)
	s2.Unflatten(flat, 0)

	p0, v0 := s.StartState()
	p1, v1 := s2.StartState()
	assert.InDelta(t, p0.AtVec(0), p1.AtVec(0), 1e-12)
	assert.InDelta(t, v0.AtVec(0), v1.AtVec(0), 1e-12)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, s.Forces().At(0, i), s2.Forces().At(0, i), 1e-12)
	}
}

func TestFlatDimReflectsTuningFlags(t *testing.T) {
	none, _ := newBoxShot(4, false, false)
	assert.Equal(t, 4, none.FlatDim())

	withStart, _ := newBoxShot(4, true, false)
	assert.Equal(t, 4+2, withStart.FlatDim())

	withMass, _ := newBoxShot(4, false, true)
	assert.Equal(t, 4+1, withMass.FlatDim())
}

func TestUnrollWritesEveryStepIntoRollout(t *testing.T) {
	s, regs := newBoxShot(3, false, false)
	s.SetForces(mat.NewDense(1, 3, []float64{2, 2, 2})) // accel = 1 every step

	out := buildRollout(regs, 3)
	err := s.Unroll(out)
	require.NoError(t, err)

	// accel = force/mass = 1 every step; box starts at rest.
	assert.InDelta(t, 0.01, out.Poses(mapping.IdentityName).At(0, 0), 1e-9)
	assert.InDelta(t, 0.1, out.Vels(mapping.IdentityName).At(0, 0), 1e-9)
	assert.InDelta(t, 0.3, out.Vels(mapping.IdentityName).At(0, 2), 1e-9)
}

func TestUnrollRestoresSimulatorStateOnSuccess(t *testing.T) {
	eng := dynamics.NewEngine(dynamics.NewBox(2.0), 0.1)
	eng.SetPositions(mat.NewVecDense(1, []float64{9}))
	regs := mapping.NewRegistry(1)
	s := shot.NewSingleShot(eng, regs, 2, false, false, logging.Noop())

	out := rollout.NewOwning(2, []rollout.Dims{{Name: mapping.IdentityName, PosDim: 1, VelDim: 1, ForceDim: 1}}, 0, logging.Noop())
	require.NoError(t, s.Unroll(out))

	assert.InDelta(t, 9.0, eng.Positions().AtVec(0), 1e-12)
}

func TestFinalStateJacobianMatchesFiniteDifference(t *testing.T) {
	s, regs := newBoxShot(3, true, false)
	s.SetForces(mat.NewDense(1, 3, []float64{1, -1, 0.5}))

	out := buildRollout(regs, 3)
	require.NoError(t, s.Unroll(out))

	jac := s.FinalStateJacobian()

	x0 := mat.NewVecDense(s.FlatDim(), nil)
	s.Flatten(x0, 0)

	finalPos := func(x *mat.VecDense) float64 {
		probe, pregs := newBoxShot(3, true, false)
		probe.Unflatten(x, 0)
		o := buildRollout(pregs, 3)
		require.NoError(t, probe.Unroll(o))
		return o.Poses(mapping.IdentityName).At(0, 2)
	}
	fdRow := testutil.Gradient(finalPos, x0)

	for i := 0; i < x0.Len(); i++ {
		assert.InDelta(t, fdRow.AtVec(i), jac.At(0, i), 1e-4)
	}
}

func TestMassGradientFDIsZeroWhenMassHasNoEffect(t *testing.T) {
	s, regs := newBoxShot(2, false, true)
	s.SetForces(mat.NewDense(1, 2, []float64{0, 0})) // zero force: accel always zero regardless of mass

	grad := s.MassGradientFD(
		func(r rollout.Rollout) float64 { return r.Poses(mapping.IdentityName).At(0, 1) },
		func() rollout.MutableRollout { return buildRollout(regs, 2) },
		1e-4,
	)
	assert.InDelta(t, 0.0, grad.AtVec(0), 1e-9)
}
