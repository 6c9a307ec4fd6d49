package mapping

import (
	"gonum.org/v1/gonum/mat"
	"go.uber.org/zap"

	"github.com/san-kum/trajopt/internal/logging"
	"github.com/san-kum/trajopt/internal/world"
)

// Reproject re-expresses a trajectory recorded under oldMapping into
// newMapping's coordinates: for every time column, it writes the recorded
// state into sim via oldMapping, then reads it back via newMapping. If
// newMapping has strictly lower dimension than oldMapping the round trip is
// not guaranteed to recover the original state, and a warning is logged —
// this is the one place the mapping registry is allowed to lose information,
// and it never does so silently.
func Reproject(
	sim world.Simulator,
	oldMapping, newMapping world.Mapping,
	oldPoses, oldVels, oldForces *mat.Dense,
	log *logging.Logger,
) (newPoses, newVels, newForces *mat.Dense) {
	_, t := oldPoses.Dims()

	if newMapping.PosDim() < oldMapping.PosDim() || newMapping.VelDim() < oldMapping.VelDim() {
		log.Warn("representation switch may lose information",
			zap.String("from", oldMapping.Name()),
			zap.String("to", newMapping.Name()),
			zap.Int("from_pos_dim", oldMapping.PosDim()),
			zap.Int("to_pos_dim", newMapping.PosDim()),
		)
	}

	newPoses = mat.NewDense(newMapping.PosDim(), t, nil)
	newVels = mat.NewDense(newMapping.VelDim(), t, nil)
	newForces = mat.NewDense(newMapping.ForceDim(), t, nil)

	snap := sim.Snapshot()
	defer snap.Restore(sim)

	for col := 0; col < t; col++ {
		oldMapping.WritePositions(sim, denseCol(oldPoses, col))
		oldMapping.WriteVelocities(sim, denseCol(oldVels, col))
		oldMapping.WriteForces(sim, denseCol(oldForces, col))

		setCol(newPoses, col, newMapping.ReadPositions(sim))
		setCol(newVels, col, newMapping.ReadVelocities(sim))
		setCol(newForces, col, newMapping.ReadForces(sim))
	}

	return
}

func denseCol(m *mat.Dense, col int) *mat.VecDense {
	r, _ := m.Dims()
	v := mat.NewVecDense(r, nil)
	v.CopyVec(m.ColView(col))
	return v
}

func setCol(m *mat.Dense, col int, v *mat.VecDense) {
	for i := 0; i < v.Len(); i++ {
		m.Set(i, col, v.AtVec(i))
	}
}
