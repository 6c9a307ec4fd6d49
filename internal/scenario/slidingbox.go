package scenario

import (
	"github.com/san-kum/trajopt/internal/dynamics"
	"github.com/san-kum/trajopt/internal/logging"
	"github.com/san-kum/trajopt/internal/loss"
	"github.com/san-kum/trajopt/internal/mapping"
	"github.com/san-kum/trajopt/internal/rollout"
	"github.com/san-kum/trajopt/internal/trajectory"
)

// BuildSlidingBox is the single-DOF, no-contact reference scenario: a
// frictionless point mass driven by a sequence of forces, used to exercise
// single-step, single-shot, and multi-shot Jacobians against finite
// differences.
func BuildSlidingBox(cfg Config, log *logging.Logger) (*trajectory.MultiShot, error) {
	dt := withDefaultF(cfg.Dt, 0.01)
	totalSteps := withDefault(cfg.TotalSteps, 40)
	shotLength := withDefault(cfg.ShotLength, 5)

	sim := dynamics.NewEngine(dynamics.NewBox(1.0), dt)
	reg := mapping.NewRegistry(sim.NumDofs())

	objective := loss.New("final-state-energy", func(r rollout.Rollout) float64 {
		t := r.Len() - 1
		pos := r.Poses(mapping.IdentityName).At(0, t)
		vel := r.Vels(mapping.IdentityName).At(0, t)
		return pos*pos + vel*vel
	})

	return trajectory.NewMultiShot(sim, reg, objective, nil, totalSteps, shotLength, cfg.TuneStartingState, cfg.TuneMass, cfg.Parallel, log), nil
}
