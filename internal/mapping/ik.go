package mapping

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajopt/internal/world"
)

// IK exposes a subset of a world's named bodies as the coordinate space.
// WARNING: if the subset spans fewer degrees of freedom than the world's
// full joint space, switching into this mapping and back loses information
// — the round-trip is not guaranteed, per the mapping registry's
// representation-switch contract.
type IK struct {
	name    string
	indices []int // dof index per selected node, in node order
}

// NewIK builds an IK mapping over the given node names, resolved against the
// world's NodeNames() order (every dynamics.AnalyticDynamics in this repo
// numbers its nodes in dof order).
func NewIK(name string, world world.Simulator, nodeNames []string) *IK {
	all := world.NodeNames()
	lookup := make(map[string]int, len(all))
	for i, n := range all {
		lookup[n] = i
	}
	indices := make([]int, 0, len(nodeNames))
	for _, n := range nodeNames {
		if idx, ok := lookup[n]; ok {
			indices = append(indices, idx)
		}
	}
	return &IK{name: name, indices: indices}
}

func (m *IK) Name() string  { return m.name }
func (m *IK) PosDim() int   { return len(m.indices) }
func (m *IK) VelDim() int   { return len(m.indices) }
func (m *IK) ForceDim() int { return len(m.indices) }

func (m *IK) ReadPositions(s world.Simulator) *mat.VecDense  { return m.selectFrom(s.Positions()) }
func (m *IK) ReadVelocities(s world.Simulator) *mat.VecDense { return m.selectFrom(s.Velocities()) }
func (m *IK) ReadForces(s world.Simulator) *mat.VecDense     { return m.selectFrom(s.Forces()) }

func (m *IK) WritePositions(s world.Simulator, v *mat.VecDense) {
	full := s.Positions()
	m.scatterInto(full, v)
	s.SetPositions(full)
}

func (m *IK) WriteVelocities(s world.Simulator, v *mat.VecDense) {
	full := s.Velocities()
	m.scatterInto(full, v)
	s.SetVelocities(full)
}

func (m *IK) WriteForces(s world.Simulator, v *mat.VecDense) {
	full := s.Forces()
	m.scatterInto(full, v)
	s.SetForces(full)
}

func (m *IK) PositionBounds(s world.Simulator) (lo, hi *mat.VecDense) {
	return m.selectFrom(s.PositionLowerLimits()), m.selectFrom(s.PositionUpperLimits())
}
func (m *IK) VelocityBounds(s world.Simulator) (lo, hi *mat.VecDense) {
	return m.selectFrom(s.VelocityLowerLimits()), m.selectFrom(s.VelocityUpperLimits())
}
func (m *IK) ForceBounds(s world.Simulator) (lo, hi *mat.VecDense) {
	return m.selectFrom(s.ForceLowerLimits()), m.selectFrom(s.ForceUpperLimits())
}

func (m *IK) selectFrom(full *mat.VecDense) *mat.VecDense {
	out := mat.NewVecDense(len(m.indices), nil)
	for i, idx := range m.indices {
		out.SetVec(i, full.AtVec(idx))
	}
	return out
}

func (m *IK) scatterInto(full, v *mat.VecDense) {
	for i, idx := range m.indices {
		full.SetVec(idx, v.AtVec(i))
	}
}

var _ world.Mapping = (*IK)(nil)
