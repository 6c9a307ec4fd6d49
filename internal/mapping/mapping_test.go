package mapping_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajopt/internal/dynamics"
	"github.com/san-kum/trajopt/internal/logging"
	"github.com/san-kum/trajopt/internal/mapping"
)

func TestNewRegistryCarriesIdentity(t *testing.T) {
	reg := mapping.NewRegistry(3)
	assert.Contains(t, reg.Names(), mapping.IdentityName)
	assert.Equal(t, mapping.IdentityName, reg.RepresentationName())

	identity := reg.Get(mapping.IdentityName)
	assert.Equal(t, 3, identity.PosDim())
	assert.Equal(t, 3, identity.VelDim())
	assert.Equal(t, 3, identity.ForceDim())
}

func TestRegistryMissingMappingPanics(t *testing.T) {
	reg := mapping.NewRegistry(1)
	assert.Panics(t, func() { reg.Get("nope") })
}

func TestRegisterAcceptsNonBijectiveButSetRepresentationRejectsIt(t *testing.T) {
	sim := dynamics.NewEngine(dynamics.NewChain(3, -1.0), 0.01)
	reg := mapping.NewRegistry(sim.NumDofs())

	subset := mapping.NewIK("bob-ik", sim, []string{sim.NodeNames()[0]})
	assert.NotPanics(t, func() { reg.Register(subset) }, "Register must accept a forward-simulation-only subset mapping")

	assert.Panics(t, func() { reg.SetRepresentation("bob-ik", sim) }, "a non-bijective mapping cannot become the representation")
	assert.Equal(t, mapping.IdentityName, reg.RepresentationName(), "a rejected SetRepresentation call must not change the active representation")

	full := mapping.NewIK("links-ik", sim, sim.NodeNames())
	reg.Register(full)
	assert.NotPanics(t, func() { reg.SetRepresentation("links-ik", sim) })
	assert.Equal(t, "links-ik", reg.RepresentationName())
}

func TestIKRoundTripsThroughNamedNodes(t *testing.T) {
	sim := dynamics.NewEngine(dynamics.NewChain(3, -1.0), 0.01)
	ik := mapping.NewIK("links-ik", sim, sim.NodeNames())

	assert.Equal(t, len(sim.NodeNames()), ik.PosDim())
	assert.Equal(t, len(sim.NodeNames()), ik.VelDim())

	want := mat.NewVecDense(ik.PosDim(), []float64{0.1, 0.2, 0.3})
	ik.WritePositions(sim, want)
	got := ik.ReadPositions(sim)

	require.Equal(t, want.Len(), got.Len())
	for i := 0; i < want.Len(); i++ {
		assert.InDelta(t, want.AtVec(i), got.AtVec(i), 1e-12)
	}
}

// TestReprojectRoundTripsThroughBijectiveMapping covers the representation
// round-trip property: reprojecting a trajectory from one bijective mapping
// into another and back recovers the original columns exactly, since no
// dimension was dropped along the way.
func TestReprojectRoundTripsThroughBijectiveMapping(t *testing.T) {
	sim := dynamics.NewEngine(dynamics.NewChain(3, -1.0), 0.01)
	identity := mapping.NewIdentity(sim.NumDofs())
	ik := mapping.NewIK("links-ik", sim, sim.NodeNames())
	require.True(t, mapping.IsBijective(ik, sim))

	const cols = 2
	oldPoses := mat.NewDense(identity.PosDim(), cols, []float64{0.1, 0.4, 0.2, 0.5, 0.3, 0.6})
	oldVels := mat.NewDense(identity.VelDim(), cols, []float64{1.0, 0.1, 1.1, 0.2, 1.2, 0.3})
	oldForces := mat.NewDense(identity.ForceDim(), cols, []float64{2.0, -1.0, 2.1, -1.1, 2.2, -1.2})

	log := logging.Noop()
	ikPoses, ikVels, ikForces := mapping.Reproject(sim, identity, ik, oldPoses, oldVels, oldForces, log)
	roundTripPoses, roundTripVels, roundTripForces := mapping.Reproject(sim, ik, identity, ikPoses, ikVels, ikForces, log)

	rows, actualCols := roundTripPoses.Dims()
	require.Equal(t, identity.PosDim(), rows)
	require.Equal(t, cols, actualCols)

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			assert.InDelta(t, oldPoses.At(i, j), roundTripPoses.At(i, j), 1e-9)
			assert.InDelta(t, oldVels.At(i, j), roundTripVels.At(i, j), 1e-9)
			assert.InDelta(t, oldForces.At(i, j), roundTripForces.At(i, j), 1e-9)
		}
	}
}
