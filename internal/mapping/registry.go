package mapping

import (
	"sort"

	"github.com/san-kum/trajopt/internal/errs"
	"github.com/san-kum/trajopt/internal/world"
)

// Registry is the name-keyed lookup a problem owns in place of mapping
// inheritance: mapping variants (identity, IK, arbitrary user mappings) are
// swappable without the problem core ever knowing which concrete type it
// holds.
type Registry struct {
	mappings       map[string]world.Mapping
	representation string
}

// NewRegistry builds a registry that always carries the identity mapping.
func NewRegistry(dofs int) *Registry {
	r := &Registry{
		mappings:       make(map[string]world.Mapping),
		representation: IdentityName,
	}
	r.Register(NewIdentity(dofs))
	return r
}

func (r *Registry) Register(m world.Mapping) {
	r.mappings[m.Name()] = m
}

// Get looks up a mapping by name. A missing mapping is a fatal
// program-contract violation: mapping lookups are never speculative.
func (r *Registry) Get(name string) world.Mapping {
	m, ok := r.mappings[name]
	if !ok {
		errs.MissingMapping(name)
	}
	return m
}

// Names returns every registered mapping name in a stable, sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.mappings))
	for n := range r.mappings {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SetRepresentation designates the mapping whose coordinate space start
// states and defect constraints live in. It does not itself touch the
// simulator; callers that need the trajectory re-expressed in the new
// mapping's coordinates must call Reproject.
//
// Register accepts any world.Mapping, bijective or not, since a mapping is
// often registered purely for forward simulation (e.g. a subset IK mapping
// used only to read out a few named nodes). The representation is different:
// start states and shot defect constraints are differentiated through it, so
// it must be bijective or gradients silently go missing dimensions. This is
// where that requirement is actually enforced.
func (r *Registry) SetRepresentation(name string, sim world.Simulator) {
	m := r.Get(name) // panics if missing
	if !IsBijective(m, sim) {
		errs.DimensionMismatch(m.Name(), sim.NumDofs(), m.PosDim())
	}
	r.representation = name
}

func (r *Registry) Representation() world.Mapping {
	return r.Get(r.representation)
}

func (r *Registry) RepresentationName() string {
	return r.representation
}
