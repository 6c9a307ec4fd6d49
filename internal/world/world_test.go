package world_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajopt/internal/dynamics"
	"github.com/san-kum/trajopt/internal/world"
)

func TestSnapshotRestoreIsIndependentOfSourceMutation(t *testing.T) {
	pos := mat.NewVecDense(1, []float64{1})
	vel := mat.NewVecDense(1, []float64{2})
	force := mat.NewVecDense(1, []float64{3})
	mass := mat.NewVecDense(1, []float64{4})

	snap := world.NewSnapshot(pos, vel, force, mass)

	// Mutating the source vectors after NewSnapshot must not leak into the
	// snapshot: it must have copied, not aliased.
	pos.SetVec(0, 999)

	eng := dynamics.NewEngine(dynamics.NewBox(1.0), 0.1)
	snap.Restore(eng)

	assert.InDelta(t, 1.0, eng.Positions().AtVec(0), 1e-12)
	assert.InDelta(t, 4.0, eng.Masses().AtVec(0), 1e-12)
}

func TestSnapshotRestoreIsIdempotent(t *testing.T) {
	eng := dynamics.NewEngine(dynamics.NewBox(1.0), 0.1)
	eng.SetPositions(mat.NewVecDense(1, []float64{7}))
	snap := eng.Snapshot()

	eng.SetPositions(mat.NewVecDense(1, []float64{1}))
	snap.Restore(eng)
	snap.Restore(eng)

	assert.InDelta(t, 7.0, eng.Positions().AtVec(0), 1e-12)
}
