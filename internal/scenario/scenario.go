// Package scenario is a name-keyed factory of complete trajectory problems,
// grounded on the teacher's internal/experiment.Registry map-of-constructors
// pattern: each entry builds its own simulator, mapping registry, objective
// and constraints, and wires them into a trajectory.MultiShot ready for a
// solver to poll.
package scenario

import (
	"fmt"

	"github.com/san-kum/trajopt/internal/logging"
	"github.com/san-kum/trajopt/internal/trajectory"
)

// Config parameterizes a named scenario's construction. Zero-valued fields
// fall back to the scenario's own defaults in Build.
type Config struct {
	TotalSteps        int
	ShotLength        int
	Dt                float64
	TuneStartingState bool
	TuneMass          bool
	Parallel          bool
}

// BuildFunc constructs a scenario's full problem from a Config.
type BuildFunc func(cfg Config, log *logging.Logger) (*trajectory.MultiShot, error)

// Registry looks up named scenario builders.
type Registry struct {
	builders map[string]BuildFunc
}

// NewRegistry returns a Registry pre-populated with every scenario named in
// the end-to-end test suite.
func NewRegistry() *Registry {
	r := &Registry{builders: make(map[string]BuildFunc)}
	r.builders["sliding-box"] = BuildSlidingBox
	r.builders["revolute-spinner"] = BuildRevoluteSpinner
	r.builders["cartpole"] = BuildCartpole
	r.builders["mass-recovery"] = BuildMassRecovery
	r.builders["constrained-cycle"] = BuildConstrainedCycle
	r.builders["parallel-jumpworm"] = BuildParallelJumpworm
	return r
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	return names
}

// Build resolves name against the registry and constructs its problem.
func (r *Registry) Build(name string, cfg Config, log *logging.Logger) (*trajectory.MultiShot, error) {
	fn, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown scenario: %s", name)
	}
	return fn(cfg, log)
}

// withDefault returns v if it is non-zero, else fallback.
func withDefault(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

func withDefaultF(v, fallback float64) float64 {
	if v == 0 {
		return fallback
	}
	return v
}
