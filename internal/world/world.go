// Package world defines the Simulator and Mapping contracts the trajectory
// optimization core consumes. Nothing in this package implements contact
// resolution, a constraint LCP, or skeleton kinematics — those live behind
// the Simulator interface in a concrete physics engine the core never
// imports. See internal/dynamics for this repo's reference implementations,
// used only to exercise and test the core.
package world

import "gonum.org/v1/gonum/mat"

// Simulator is the dynamics world the trajectory core drives forward and
// differentiates through. Every mutating method acts on the simulator's
// current state; callers that need to undo a mutation must acquire a
// Snapshot first.
type Simulator interface {
	// NumDofs returns the number of generalized coordinates.
	NumDofs() int

	Positions() *mat.VecDense
	Velocities() *mat.VecDense
	Forces() *mat.VecDense

	SetPositions(*mat.VecDense)
	SetVelocities(*mat.VecDense)
	SetForces(*mat.VecDense)

	// Step advances the simulator by one tick and returns the linearization
	// of that transition. A non-nil error aborts the current unroll; the
	// simulator's state after a failed Step is undefined and must be
	// restored from a Snapshot before reuse.
	Step() (*BackpropSnapshot, error)

	// Clone returns an independent simulator with the same current state,
	// dynamics parameters, and mass, suitable for use by a different
	// goroutine. Mutating the clone never affects the receiver.
	Clone() Simulator

	// Snapshot acquires a restorable copy of the full simulator state
	// (positions, velocities, forces, mass parameters). Restore must be
	// called on every exit path of the scope that mutated the simulator.
	Snapshot() *Snapshot

	// NodeNames lists the named bodies this world exposes for IK mappings
	// and forward-kinematics JSON emission, in a stable order.
	NodeNames() []string

	// NodeFrame returns the world-frame translation and XYZ Euler rotation
	// of the named node given the simulator's current position state.
	NodeFrame(name string) (translation, rotation [3]float64)

	PositionLowerLimits() *mat.VecDense
	PositionUpperLimits() *mat.VecDense
	VelocityLowerLimits() *mat.VecDense
	VelocityUpperLimits() *mat.VecDense
	ForceLowerLimits() *mat.VecDense
	ForceUpperLimits() *mat.VecDense

	// Masses returns the current mass parameter vector and its registered
	// bounds, for problems that tune mass.
	Masses() *mat.VecDense
	SetMasses(*mat.VecDense)
	MassLowerLimits() *mat.VecDense
	MassUpperLimits() *mat.VecDense
}

// BackpropSnapshot is the per-step linearization of one simulator Step call:
// the six Jacobians of (pos_{t+1}, vel_{t+1}) with respect to
// (pos_t, vel_t, force_t). The trajectory core treats these as black boxes.
type BackpropSnapshot struct {
	PosPos   *mat.Dense // d pos_{t+1} / d pos_t
	PosVel   *mat.Dense // d pos_{t+1} / d vel_t
	PosForce *mat.Dense // d pos_{t+1} / d force_t
	VelPos   *mat.Dense // d vel_{t+1} / d pos_t
	VelVel   *mat.Dense // d vel_{t+1} / d vel_t
	VelForce *mat.Dense // d vel_{t+1} / d force_t
}

// Snapshot is a restorable copy of a Simulator's full state, acquired before
// a scope that mutates the world and restored on every exit path of that
// scope, including failure.
type Snapshot struct {
	positions  *mat.VecDense
	velocities *mat.VecDense
	forces     *mat.VecDense
	masses     *mat.VecDense
}

// NewSnapshot copies the given vectors into a fresh Snapshot. Simulator
// implementations call this from Snapshot() rather than constructing the
// struct directly, so the copy (not an alias) is always what gets restored.
func NewSnapshot(positions, velocities, forces, masses *mat.VecDense) *Snapshot {
	return &Snapshot{
		positions:  cloneVec(positions),
		velocities: cloneVec(velocities),
		forces:     cloneVec(forces),
		masses:     cloneVec(masses),
	}
}

// Restore writes the snapshotted state back into sim. Safe to call more
// than once; idempotent.
func (s *Snapshot) Restore(sim Simulator) {
	sim.SetPositions(cloneVec(s.positions))
	sim.SetVelocities(cloneVec(s.velocities))
	sim.SetForces(cloneVec(s.forces))
	sim.SetMasses(cloneVec(s.masses))
}

func cloneVec(v *mat.VecDense) *mat.VecDense {
	if v == nil {
		return nil
	}
	out := mat.NewVecDense(v.Len(), nil)
	out.CopyVec(v)
	return out
}

// Mapping is a named, invertible view over a Simulator's state. Dimensions
// are constant for the lifetime of a problem; reading a world in a given
// mapping is deterministic given world state.
type Mapping interface {
	Name() string
	PosDim() int
	VelDim() int
	ForceDim() int

	ReadPositions(Simulator) *mat.VecDense
	ReadVelocities(Simulator) *mat.VecDense
	ReadForces(Simulator) *mat.VecDense

	WritePositions(Simulator, *mat.VecDense)
	WriteVelocities(Simulator, *mat.VecDense)
	WriteForces(Simulator, *mat.VecDense)

	// PositionBounds, VelocityBounds, and ForceBounds project the
	// simulator's joint-space limits into this mapping's coordinates.
	PositionBounds(Simulator) (lo, hi *mat.VecDense)
	VelocityBounds(Simulator) (lo, hi *mat.VecDense)
	ForceBounds(Simulator) (lo, hi *mat.VecDense)
}
