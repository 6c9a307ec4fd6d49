package dynamics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajopt/internal/dynamics"
	"github.com/san-kum/trajopt/internal/testutil"
)

func TestEngineStepAdvancesBoxLinearly(t *testing.T) {
	eng := dynamics.NewEngine(dynamics.NewBox(2.0), 0.1)
	eng.SetForces(mat.NewVecDense(1, []float64{4})) // accel = 2

	_, err := eng.Step()
	require.NoError(t, err)

	assert.InDelta(t, 0.2, eng.Velocities().AtVec(0), 1e-9) // 0 + 0.1*2
	assert.InDelta(t, 0.02, eng.Positions().AtVec(0), 1e-9) // 0 + 0.1*0.2
}

func TestEngineBackpropSnapshotMatchesFiniteDifference(t *testing.T) {
	eng := dynamics.NewEngine(dynamics.NewPendulum(), 0.05)
	eng.SetPositions(mat.NewVecDense(1, []float64{0.3}))
	eng.SetVelocities(mat.NewVecDense(1, []float64{-0.1}))
	eng.SetForces(mat.NewVecDense(1, []float64{0.2}))

	snap, err := eng.Step()
	require.NoError(t, err)

	// Rebuild a fresh engine at the pre-step state for every finite-difference
	// probe, since Step mutates in place.
	stepFrom := func(pos, vel, force float64) (posNew, velNew float64) {
		e := dynamics.NewEngine(dynamics.NewPendulum(), 0.05)
		e.SetPositions(mat.NewVecDense(1, []float64{pos}))
		e.SetVelocities(mat.NewVecDense(1, []float64{vel}))
		e.SetForces(mat.NewVecDense(1, []float64{force}))
		_, err := e.Step()
		require.NoError(t, err)
		return e.Positions().AtVec(0), e.Velocities().AtVec(0)
	}

	posPosFD := testutil.Gradient(func(x *mat.VecDense) float64 {
		p, _ := stepFrom(x.AtVec(0), -0.1, 0.2)
		return p
	}, mat.NewVecDense(1, []float64{0.3}))
	assert.InDelta(t, posPosFD.AtVec(0), snap.PosPos.At(0, 0), 1e-4)

	velPosFD := testutil.Gradient(func(x *mat.VecDense) float64 {
		_, v := stepFrom(x.AtVec(0), -0.1, 0.2)
		return v
	}, mat.NewVecDense(1, []float64{0.3}))
	assert.InDelta(t, velPosFD.AtVec(0), snap.VelPos.At(0, 0), 1e-4)

	posForceFD := testutil.Gradient(func(x *mat.VecDense) float64 {
		p, _ := stepFrom(0.3, -0.1, x.AtVec(0))
		return p
	}, mat.NewVecDense(1, []float64{0.2}))
	assert.InDelta(t, posForceFD.AtVec(0), snap.PosForce.At(0, 0), 1e-4)
}

func TestEngineStepRejectsNaNState(t *testing.T) {
	eng := dynamics.NewEngine(dynamics.NewBox(1e-9), 1.0)
	eng.SetForces(mat.NewVecDense(1, []float64{1e300}))

	_, err := eng.Step()
	assert.Error(t, err)
}

func TestEngineCloneIsIndependent(t *testing.T) {
	eng := dynamics.NewEngine(dynamics.NewBox(1.0), 0.1)
	eng.SetPositions(mat.NewVecDense(1, []float64{5}))

	clone := eng.Clone()
	clone.SetPositions(mat.NewVecDense(1, []float64{99}))

	assert.InDelta(t, 5.0, eng.Positions().AtVec(0), 1e-12)
	assert.InDelta(t, 99.0, clone.Positions().AtVec(0), 1e-12)
}

func TestEngineSnapshotRestoresFullState(t *testing.T) {
	eng := dynamics.NewEngine(dynamics.NewBox(3.0), 0.1)
	eng.SetPositions(mat.NewVecDense(1, []float64{1}))
	eng.SetVelocities(mat.NewVecDense(1, []float64{2}))

	snap := eng.Snapshot()
	eng.SetPositions(mat.NewVecDense(1, []float64{100}))
	eng.SetMasses(mat.NewVecDense(1, []float64{50}))

	snap.Restore(eng)
	assert.InDelta(t, 1.0, eng.Positions().AtVec(0), 1e-12)
	assert.InDelta(t, 3.0, eng.Masses().AtVec(0), 1e-12)
}
