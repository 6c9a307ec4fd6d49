package scenario

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajopt/internal/dynamics"
	"github.com/san-kum/trajopt/internal/logging"
	"github.com/san-kum/trajopt/internal/loss"
	"github.com/san-kum/trajopt/internal/mapping"
	"github.com/san-kum/trajopt/internal/rollout"
	"github.com/san-kum/trajopt/internal/trajectory"
)

// groundTruthMass is the mass BuildMassRecovery's target poses were
// generated with; the scenario then builds a problem whose own starting
// mass guess (1.0) is deliberately wrong, with mass-tuning enabled.
const groundTruthMass = 2.5

// BuildMassRecovery fits the one tunable mass parameter of a single
// translational body against target poses generated by groundTruthMass
// under a unit force per step. The force sequence is not pinned: it stays
// in the decision vector alongside the mass and starts at zero.
func BuildMassRecovery(cfg Config, log *logging.Logger) (*trajectory.MultiShot, error) {
	dt := withDefaultF(cfg.Dt, 0.02)
	totalSteps := withDefault(cfg.TotalSteps, 12)
	shotLength := withDefault(cfg.ShotLength, 12)

	target := recoveryTargets(dt, totalSteps)

	sim := dynamics.NewEngine(dynamics.NewBox(1.0), dt)
	reg := mapping.NewRegistry(sim.NumDofs())

	objective := loss.New("pose-tracking", func(r rollout.Rollout) float64 {
		poses := r.Poses(mapping.IdentityName)
		sum := 0.0
		for t := 0; t < r.Len(); t++ {
			d := poses.At(0, t) - target[t]
			sum += d * d
		}
		return sum
	})

	return trajectory.NewMultiShot(sim, reg, objective, nil, totalSteps, shotLength, cfg.TuneStartingState, true, cfg.Parallel, log), nil
}

// recoveryTargets replays a fixed unit-force-per-step sequence against
// groundTruthMass and returns the resulting pose at every tick, the way a
// held-out reference trajectory would be produced before the recovery run.
func recoveryTargets(dt float64, steps int) []float64 {
	sim := dynamics.NewEngine(dynamics.NewBox(groundTruthMass), dt)
	targets := make([]float64, steps)
	for t := 0; t < steps; t++ {
		sim.SetForces(mat.NewVecDense(1, []float64{1.0}))
		sim.Step()
		targets[t] = sim.Positions().AtVec(0)
	}
	return targets
}
