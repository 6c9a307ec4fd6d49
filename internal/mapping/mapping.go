// Package mapping implements named, invertible views over a world.Simulator's
// state: the identity joint-space mapping every problem carries, and an
// optional inverse-kinematics mapping over a subset of named bodies.
package mapping

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajopt/internal/world"
)

// IdentityName is the name every problem's mapping registry must carry.
const IdentityName = "identity"

// Identity reads and writes raw joint-space position/velocity/force vectors
// unchanged.
type Identity struct {
	dofs int
}

func NewIdentity(dofs int) *Identity {
	return &Identity{dofs: dofs}
}

func (m *Identity) Name() string    { return IdentityName }
func (m *Identity) PosDim() int     { return m.dofs }
func (m *Identity) VelDim() int     { return m.dofs }
func (m *Identity) ForceDim() int   { return m.dofs }

func (m *Identity) ReadPositions(s world.Simulator) *mat.VecDense  { return s.Positions() }
func (m *Identity) ReadVelocities(s world.Simulator) *mat.VecDense { return s.Velocities() }
func (m *Identity) ReadForces(s world.Simulator) *mat.VecDense     { return s.Forces() }

func (m *Identity) WritePositions(s world.Simulator, v *mat.VecDense)  { s.SetPositions(v) }
func (m *Identity) WriteVelocities(s world.Simulator, v *mat.VecDense) { s.SetVelocities(v) }
func (m *Identity) WriteForces(s world.Simulator, v *mat.VecDense)     { s.SetForces(v) }

func (m *Identity) PositionBounds(s world.Simulator) (lo, hi *mat.VecDense) {
	return s.PositionLowerLimits(), s.PositionUpperLimits()
}
func (m *Identity) VelocityBounds(s world.Simulator) (lo, hi *mat.VecDense) {
	return s.VelocityLowerLimits(), s.VelocityUpperLimits()
}
func (m *Identity) ForceBounds(s world.Simulator) (lo, hi *mat.VecDense) {
	return s.ForceLowerLimits(), s.ForceUpperLimits()
}

var _ world.Mapping = (*Identity)(nil)
