package scenario

import (
	"github.com/san-kum/trajopt/internal/dynamics"
	"github.com/san-kum/trajopt/internal/logging"
	"github.com/san-kum/trajopt/internal/loss"
	"github.com/san-kum/trajopt/internal/mapping"
	"github.com/san-kum/trajopt/internal/rollout"
	"github.com/san-kum/trajopt/internal/trajectory"
)

// BuildConstrainedCycle is a pendulum over 12 steps split into 3-step
// shots, with an equality constraint pinning the first and last recorded
// poses together and an objective pulling the midpoint pose toward 0.1.
func BuildConstrainedCycle(cfg Config, log *logging.Logger) (*trajectory.MultiShot, error) {
	dt := withDefaultF(cfg.Dt, 0.02)
	totalSteps := withDefault(cfg.TotalSteps, 12)
	shotLength := withDefault(cfg.ShotLength, 3)

	sim := dynamics.NewEngine(dynamics.NewPendulum(), dt)
	reg := mapping.NewRegistry(sim.NumDofs())

	objective := loss.New("midpoint-target", func(r rollout.Rollout) float64 {
		mid := r.Len() / 2
		p := r.Poses(mapping.IdentityName).At(0, mid) - 0.1
		return p * p
	})

	cycle := loss.New("cycle-defect", func(r rollout.Rollout) float64 {
		poses := r.Poses(mapping.IdentityName)
		d := poses.At(0, 0) - poses.At(0, r.Len()-1)
		return d * d
	}).WithBounds(0, 0)

	return trajectory.NewMultiShot(sim, reg, objective, []*loss.Loss{cycle}, totalSteps, shotLength, cfg.TuneStartingState, cfg.TuneMass, cfg.Parallel, log), nil
}
