package rollout_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajopt/internal/logging"
	"github.com/san-kum/trajopt/internal/rollout"
)

func dims() []rollout.Dims {
	return []rollout.Dims{{Name: "identity", PosDim: 2, VelDim: 2, ForceDim: 2}}
}

func TestOwningWriteReadRoundTrip(t *testing.T) {
	o := rollout.NewOwning(3, dims(), 1, logging.Noop())
	o.MutablePoses("identity").Set(0, 1, 5.0)

	assert.InDelta(t, 5.0, o.Poses("identity").At(0, 1), 1e-12)
	assert.Equal(t, 3, o.Len())
}

func TestOwningMetadataMissKeyReturnsEmptyMatrix(t *testing.T) {
	o := rollout.NewOwning(1, dims(), 0, logging.Noop())
	m := o.Metadata("missing")
	r, c := m.Dims()
	assert.Equal(t, 0, r)
	assert.Equal(t, 0, c)
}

func TestOwningDeepCopyIsIndependent(t *testing.T) {
	o := rollout.NewOwning(2, dims(), 0, logging.Noop())
	o.MutablePoses("identity").Set(0, 0, 1.0)

	copied := o.DeepCopy()
	copied.MutablePoses("identity").Set(0, 0, 99.0)

	assert.InDelta(t, 1.0, o.Poses("identity").At(0, 0), 1e-12)
	assert.InDelta(t, 99.0, copied.Poses("identity").At(0, 0), 1e-12)
}

func TestSliceWindowsIntoBackingStorage(t *testing.T) {
	o := rollout.NewOwning(5, dims(), 0, logging.Noop())
	for t := 0; t < 5; t++ {
		o.MutablePoses("identity").Set(0, t, float64(t))
	}

	s := rollout.NewSlice(o, 2, 2)
	require.Equal(t, 2, s.Len())
	assert.InDelta(t, 2.0, s.Poses("identity").At(0, 0), 1e-12)
	assert.InDelta(t, 3.0, s.Poses("identity").At(0, 1), 1e-12)

	// Writes through the slice are visible in the backing rollout.
	s.MutablePoses("identity").Set(0, 0, 42.0)
	assert.InDelta(t, 42.0, o.Poses("identity").At(0, 2), 1e-12)
}

func TestSliceSetMassesRejectsNonOwningBacking(t *testing.T) {
	o := rollout.NewOwning(4, dims(), 1, logging.Noop())
	outer := rollout.NewSlice(o, 0, 4)
	inner := rollout.NewSlice(outer, 0, 2)

	assert.Panics(t, func() {
		inner.SetMasses(mat.NewVecDense(1, []float64{1}))
	})
}

func TestConstSliceExposesNoMutableMethods(t *testing.T) {
	o := rollout.NewOwning(3, dims(), 0, logging.Noop())
	var r rollout.Rollout = rollout.NewConstSlice(o, 0, 3)

	// r's static type is Rollout, not MutableRollout: there is no mutator to
	// call here, which is the point of ConstSlice.
	assert.Equal(t, 3, r.Len())
	_, ok := r.(rollout.MutableRollout)
	assert.False(t, ok)
}

func TestConstSliceDeepCopyProducesMutableCopy(t *testing.T) {
	o := rollout.NewOwning(3, dims(), 0, logging.Noop())
	o.MutablePoses("identity").Set(0, 1, 7.0)

	c := rollout.NewConstSlice(o, 0, 3)
	copied := c.DeepCopy()

	assert.InDelta(t, 7.0, copied.Poses("identity").At(0, 1), 1e-12)
	copied.MutablePoses("identity").Set(0, 1, 1.0)
	assert.InDelta(t, 7.0, o.Poses("identity").At(0, 1), 1e-12)
}
