// Package rollout implements the dense, column-major trajectory buffers the
// rest of the engine reads and writes: an owning variant that allocates its
// own storage, and borrowing (mutable and const) variants that view a window
// of another rollout's columns.
//
// The const-slice question the design notes leave open — "should write
// entry points be absent or retained as invariant-violation stubs" — is
// resolved here in favor of the cleaner redesign: read-only access is a
// distinct Go interface, so a caller holding a Rollout (not a
// MutableRollout) cannot even compile a call to a mutator. See DESIGN.md.
package rollout

import (
	"gonum.org/v1/gonum/mat"
	"go.uber.org/zap"

	"github.com/san-kum/trajopt/internal/logging"
)

// Rollout is the read-only view every loss function and JSON emitter
// consumes.
type Rollout interface {
	Len() int
	MappingNames() []string
	Poses(mappingName string) mat.Matrix
	Vels(mappingName string) mat.Matrix
	Forces(mappingName string) mat.Matrix
	Masses() mat.Vector
	Metadata(key string) mat.Matrix
	DeepCopy() MutableRollout
}

// MutableRollout additionally permits writing into the buffer. Only Owning
// and Slice implement it; ConstSlice implements Rollout alone.
type MutableRollout interface {
	Rollout
	MutablePoses(mappingName string) *mat.Dense
	MutableVels(mappingName string) *mat.Dense
	MutableForces(mappingName string) *mat.Dense
	SetMasses(*mat.VecDense)
	SetMetadata(key string, value *mat.Dense)
}

// Dims describes one registered mapping's column count, used to allocate an
// Owning rollout's matrices.
type Dims struct {
	Name     string
	PosDim   int
	VelDim   int
	ForceDim int
}

// Owning allocates and owns every matrix in the buffer.
type Owning struct {
	t        int
	poses    map[string]*mat.Dense
	vels     map[string]*mat.Dense
	forces   map[string]*mat.Dense
	masses   *mat.VecDense
	metadata map[string]*mat.Dense
	log      *logging.Logger
}

// NewOwning allocates a rollout window of t columns for the given mappings.
// mappings must include an entry named "identity"; that invariant is
// enforced by the caller (the problem's mapping registry always registers
// it).
func NewOwning(t int, mappings []Dims, massDim int, log *logging.Logger) *Owning {
	o := &Owning{
		t:        t,
		poses:    make(map[string]*mat.Dense, len(mappings)),
		vels:     make(map[string]*mat.Dense, len(mappings)),
		forces:   make(map[string]*mat.Dense, len(mappings)),
		masses:   newMassVec(massDim),
		metadata: make(map[string]*mat.Dense),
		log:      log,
	}
	for _, d := range mappings {
		o.poses[d.Name] = mat.NewDense(d.PosDim, t, nil)
		o.vels[d.Name] = mat.NewDense(d.VelDim, t, nil)
		o.forces[d.Name] = mat.NewDense(d.ForceDim, t, nil)
	}
	return o
}

// newMassVec returns a zeroed mass vector of length n; n == 0 yields an
// empty vector, since gonum refuses zero-length allocations.
func newMassVec(n int) *mat.VecDense {
	if n == 0 {
		return &mat.VecDense{}
	}
	return mat.NewVecDense(n, nil)
}

func (o *Owning) Len() int { return o.t }

func (o *Owning) MappingNames() []string {
	names := make([]string, 0, len(o.poses))
	for n := range o.poses {
		names = append(names, n)
	}
	return names
}

func (o *Owning) Poses(name string) mat.Matrix  { return o.MutablePoses(name) }
func (o *Owning) Vels(name string) mat.Matrix   { return o.MutableVels(name) }
func (o *Owning) Forces(name string) mat.Matrix { return o.MutableForces(name) }

func (o *Owning) MutablePoses(name string) *mat.Dense  { return o.poses[name] }
func (o *Owning) MutableVels(name string) *mat.Dense   { return o.vels[name] }
func (o *Owning) MutableForces(name string) *mat.Dense { return o.forces[name] }

func (o *Owning) Masses() mat.Vector         { return o.masses }
func (o *Owning) SetMasses(m *mat.VecDense)  { o.masses = m }

// Metadata returns the matrix stored under key, or a 0x0 zero matrix with a
// logged diagnostic if key was never set — a missing-metadata lookup is a
// recoverable condition, unlike a missing mapping.
func (o *Owning) Metadata(key string) mat.Matrix {
	if m, ok := o.metadata[key]; ok {
		return m
	}
	if o.log != nil {
		o.log.Warn("rollout metadata lookup miss", zap.String("key", key))
	}
	return &mat.Dense{}
}

func (o *Owning) SetMetadata(key string, value *mat.Dense) {
	o.metadata[key] = value
}

// DeepCopy duplicates every matrix in the buffer by value.
func (o *Owning) DeepCopy() MutableRollout {
	copyMap := func(src map[string]*mat.Dense) map[string]*mat.Dense {
		dst := make(map[string]*mat.Dense, len(src))
		for k, v := range src {
			c := mat.NewDense(v.RawMatrix().Rows, v.RawMatrix().Cols, nil)
			c.Copy(v)
			dst[k] = c
		}
		return dst
	}
	massCopy := newMassVec(o.masses.Len())
	if o.masses.Len() > 0 {
		massCopy.CopyVec(o.masses)
	}
	metaCopy := make(map[string]*mat.Dense, len(o.metadata))
	for k, v := range o.metadata {
		c := mat.NewDense(v.RawMatrix().Rows, v.RawMatrix().Cols, nil)
		c.Copy(v)
		metaCopy[k] = c
	}
	return &Owning{
		t:        o.t,
		poses:    copyMap(o.poses),
		vels:     copyMap(o.vels),
		forces:   copyMap(o.forces),
		masses:   massCopy,
		metadata: metaCopy,
		log:      o.log,
	}
}

var (
	_ MutableRollout = (*Owning)(nil)
)
