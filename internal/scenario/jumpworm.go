package scenario

import (
	"github.com/san-kum/trajopt/internal/dynamics"
	"github.com/san-kum/trajopt/internal/logging"
	"github.com/san-kum/trajopt/internal/loss"
	"github.com/san-kum/trajopt/internal/mapping"
	"github.com/san-kum/trajopt/internal/rollout"
	"github.com/san-kum/trajopt/internal/trajectory"
)

// jumpwormDofs is the chain's link count for the parallel jumpworm scenario.
const jumpwormDofs = 5

// BuildParallelJumpworm is a 5-DOF articulated chain over a floor spring,
// 100 steps split into 20-step shots, with mass-tuning and an IK mapping
// over every link registered — the scenario the serial/parallel
// bit-identical contract is checked against.
func BuildParallelJumpworm(cfg Config, log *logging.Logger) (*trajectory.MultiShot, error) {
	dt := withDefaultF(cfg.Dt, 0.005)
	totalSteps := withDefault(cfg.TotalSteps, 100)
	shotLength := withDefault(cfg.ShotLength, 20)

	sim := dynamics.NewEngine(dynamics.NewChain(jumpwormDofs, -1.0), dt)
	reg := mapping.NewRegistry(sim.NumDofs())
	reg.Register(mapping.NewIK("links-ik", sim, sim.NodeNames()))

	objective := loss.New("height-and-effort", func(r rollout.Rollout) float64 {
		poses := r.Poses(mapping.IdentityName)
		forces := r.Forces(mapping.IdentityName)
		posDim, _ := poses.Dims()
		forceDim, _ := forces.Dims()
		t := r.Len() - 1

		sum := 0.0
		for d := 0; d < posDim; d++ {
			h := poses.At(d, t)
			sum += h * h
		}
		for step := 0; step < r.Len(); step++ {
			for d := 0; d < forceDim; d++ {
				f := forces.At(d, step)
				sum += 0.01 * f * f
			}
		}
		return sum
	})

	return trajectory.NewMultiShot(sim, reg, objective, nil, totalSteps, shotLength, cfg.TuneStartingState, true, cfg.Parallel, log), nil
}
