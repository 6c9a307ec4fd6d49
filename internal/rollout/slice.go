package rollout

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajopt/internal/errs"
)

// rawDense is the package-internal seam that lets Slice and ConstSlice
// window into whatever backs them — an Owning rollout or another Slice —
// without exposing raw matrix access outside this package.
type rawDense interface {
	rawPoses(name string) *mat.Dense
	rawVels(name string) *mat.Dense
	rawForces(name string) *mat.Dense
	rawMasses() *mat.VecDense
	rawMetadata(key string) *mat.Dense
	rawLen() int
	rawNames() []string
}

func (o *Owning) rawPoses(name string) *mat.Dense  { return o.poses[name] }
func (o *Owning) rawVels(name string) *mat.Dense   { return o.vels[name] }
func (o *Owning) rawForces(name string) *mat.Dense { return o.forces[name] }
func (o *Owning) rawMasses() *mat.VecDense         { return o.masses }
func (o *Owning) rawMetadata(key string) *mat.Dense {
	m, ok := o.metadata[key]
	if !ok {
		return &mat.Dense{}
	}
	return m
}
func (o *Owning) rawLen() int          { return o.t }
func (o *Owning) rawNames() []string   { return o.MappingNames() }

func windowOf(m *mat.Dense, start, length int) *mat.Dense {
	if m == nil {
		return nil
	}
	rows, _ := m.Dims()
	if rows == 0 {
		return mat.NewDense(0, length, nil)
	}
	return m.Slice(0, rows, start, start+length).(*mat.Dense)
}

// Slice is a lightweight, mutable borrowing view over columns
// [start, start+length) of a backing rollout. Its lifetime must not exceed
// the backing rollout's.
type Slice struct {
	backing rawDense
	start   int
	length  int
}

// NewSlice borrows [start, start+length) of backing. Writes through the
// returned Slice are visible in backing and vice versa.
func NewSlice(backing MutableRollout, start, length int) *Slice {
	rd, ok := backing.(rawDense)
	if !ok {
		errs.DimensionMismatch("rollout.NewSlice: backing must support raw windowing", 0, 0)
	}
	return &Slice{backing: rd, start: start, length: length}
}

func (s *Slice) Len() int              { return s.length }
func (s *Slice) MappingNames() []string { return s.backing.rawNames() }

func (s *Slice) rawPoses(name string) *mat.Dense  { return windowOf(s.backing.rawPoses(name), s.start, s.length) }
func (s *Slice) rawVels(name string) *mat.Dense   { return windowOf(s.backing.rawVels(name), s.start, s.length) }
func (s *Slice) rawForces(name string) *mat.Dense { return windowOf(s.backing.rawForces(name), s.start, s.length) }
func (s *Slice) rawMasses() *mat.VecDense         { return s.backing.rawMasses() }
func (s *Slice) rawMetadata(key string) *mat.Dense { return s.backing.rawMetadata(key) }
func (s *Slice) rawLen() int                      { return s.length }
func (s *Slice) rawNames() []string               { return s.backing.rawNames() }

func (s *Slice) Poses(name string) mat.Matrix  { return s.rawPoses(name) }
func (s *Slice) Vels(name string) mat.Matrix   { return s.rawVels(name) }
func (s *Slice) Forces(name string) mat.Matrix { return s.rawForces(name) }
func (s *Slice) Masses() mat.Vector            { return s.backing.rawMasses() }
func (s *Slice) Metadata(key string) mat.Matrix { return s.backing.rawMetadata(key) }

func (s *Slice) MutablePoses(name string) *mat.Dense  { return s.rawPoses(name) }
func (s *Slice) MutableVels(name string) *mat.Dense   { return s.rawVels(name) }
func (s *Slice) MutableForces(name string) *mat.Dense { return s.rawForces(name) }

func (s *Slice) SetMasses(m *mat.VecDense) {
	if owning, ok := s.backing.(*Owning); ok {
		owning.SetMasses(m)
		return
	}
	errs.DimensionMismatch("rollout.Slice.SetMasses: masses are whole-rollout state, not windowed", 0, 0)
}

func (s *Slice) SetMetadata(key string, value *mat.Dense) {
	if owning, ok := s.backing.(*Owning); ok {
		owning.SetMetadata(key, value)
		return
	}
	errs.DimensionMismatch("rollout.Slice.SetMetadata: metadata is whole-rollout state, not windowed", 0, 0)
}

func (s *Slice) DeepCopy() MutableRollout {
	dims := make([]Dims, 0, len(s.rawNames()))
	for _, name := range s.rawNames() {
		pr, _ := s.rawPoses(name).Dims()
		vr, _ := s.rawVels(name).Dims()
		fr, _ := s.rawForces(name).Dims()
		dims = append(dims, Dims{Name: name, PosDim: pr, VelDim: vr, ForceDim: fr})
	}
	out := NewOwning(s.length, dims, s.backing.rawMasses().Len(), nil)
	for _, name := range s.rawNames() {
		out.MutablePoses(name).Copy(s.rawPoses(name))
		out.MutableVels(name).Copy(s.rawVels(name))
		out.MutableForces(name).Copy(s.rawForces(name))
	}
	if out.masses.Len() > 0 {
		out.masses.CopyVec(s.backing.rawMasses())
	}
	return out
}

var _ MutableRollout = (*Slice)(nil)
var _ rawDense = (*Slice)(nil)

// ConstSlice is a read-only borrowing view. Unlike Slice, it implements only
// Rollout: there is no MutableRollout method set to call into, so a
// programmer error ("write through a const slice") is caught by the
// compiler rather than by a runtime panic.
type ConstSlice struct {
	backing rawDense
	start   int
	length  int
}

// NewConstSlice borrows a read-only window of any Rollout, mutable or not.
func NewConstSlice(backing Rollout, start, length int) *ConstSlice {
	rd, ok := backing.(rawDense)
	if !ok {
		errs.DimensionMismatch("rollout.NewConstSlice: backing must support raw windowing", 0, 0)
	}
	return &ConstSlice{backing: rd, start: start, length: length}
}

func (c *ConstSlice) Len() int               { return c.length }
func (c *ConstSlice) MappingNames() []string { return c.backing.rawNames() }

func (c *ConstSlice) rawPoses(name string) *mat.Dense  { return windowOf(c.backing.rawPoses(name), c.start, c.length) }
func (c *ConstSlice) rawVels(name string) *mat.Dense   { return windowOf(c.backing.rawVels(name), c.start, c.length) }
func (c *ConstSlice) rawForces(name string) *mat.Dense { return windowOf(c.backing.rawForces(name), c.start, c.length) }
func (c *ConstSlice) rawMasses() *mat.VecDense         { return c.backing.rawMasses() }
func (c *ConstSlice) rawMetadata(key string) *mat.Dense { return c.backing.rawMetadata(key) }
func (c *ConstSlice) rawLen() int                      { return c.length }
func (c *ConstSlice) rawNames() []string               { return c.backing.rawNames() }

func (c *ConstSlice) Poses(name string) mat.Matrix   { return c.rawPoses(name) }
func (c *ConstSlice) Vels(name string) mat.Matrix    { return c.rawVels(name) }
func (c *ConstSlice) Forces(name string) mat.Matrix  { return c.rawForces(name) }
func (c *ConstSlice) Masses() mat.Vector             { return c.backing.rawMasses() }
func (c *ConstSlice) Metadata(key string) mat.Matrix { return c.backing.rawMetadata(key) }

func (c *ConstSlice) DeepCopy() MutableRollout {
	s := &Slice{backing: c.backing, start: c.start, length: c.length}
	return s.DeepCopy()
}

var _ Rollout = (*ConstSlice)(nil)
var _ rawDense = (*ConstSlice)(nil)
