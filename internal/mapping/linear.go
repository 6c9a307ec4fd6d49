package mapping

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajopt/internal/world"
)

// Linear is implemented by every mapping in this package: each one's
// read/write is a fixed linear transform of the world's native state. The
// trajectory core uses this to project BackpropSnapshot Jacobians (always
// expressed in the simulator's native dof space) into representation-space
// Jacobians when the representation mapping is not identity. Projection is
// only exact when the mapping is a bijection (square, orthogonal selection
// matrix) — see shot.SingleShot.FinalStateJacobian.
type Linear interface {
	world.Mapping
	PosMatrix(world.Simulator) *mat.Dense
	VelMatrix(world.Simulator) *mat.Dense
	ForceMatrix(world.Simulator) *mat.Dense
}

func (m *Identity) PosMatrix(s world.Simulator) *mat.Dense   { return identityMatrix(m.dofs) }
func (m *Identity) VelMatrix(s world.Simulator) *mat.Dense   { return identityMatrix(m.dofs) }
func (m *Identity) ForceMatrix(s world.Simulator) *mat.Dense { return identityMatrix(m.dofs) }

func identityMatrix(n int) *mat.Dense {
	out := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		out.Set(i, i, 1)
	}
	return out
}

func (m *IK) selectionMatrix(worldDofs int) *mat.Dense {
	out := mat.NewDense(len(m.indices), worldDofs, nil)
	for row, col := range m.indices {
		out.Set(row, col, 1)
	}
	return out
}

func (m *IK) PosMatrix(s world.Simulator) *mat.Dense   { return m.selectionMatrix(s.NumDofs()) }
func (m *IK) VelMatrix(s world.Simulator) *mat.Dense   { return m.selectionMatrix(s.NumDofs()) }
func (m *IK) ForceMatrix(s world.Simulator) *mat.Dense { return m.selectionMatrix(s.NumDofs()) }

var (
	_ Linear = (*Identity)(nil)
	_ Linear = (*IK)(nil)
)

// IsBijective reports whether m's selection matrix is square, i.e. the
// mapping spans the world's full native state and representation switches
// through it are guaranteed to round-trip.
func IsBijective(m world.Mapping, s world.Simulator) bool {
	return m.PosDim() == s.NumDofs() && m.VelDim() == s.NumDofs()
}
