package scenario

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajopt/internal/dynamics"
	"github.com/san-kum/trajopt/internal/logging"
	"github.com/san-kum/trajopt/internal/loss"
	"github.com/san-kum/trajopt/internal/mapping"
	"github.com/san-kum/trajopt/internal/rollout"
	"github.com/san-kum/trajopt/internal/trajectory"
)

// BuildCartpole is a prismatic cart carrying a revolute pole, released at
// 15 degrees, whose multi-shot gradient is checked against finite
// differences on the loss ||p_T||^2 + ||v_T||^2 + sum_t ||u_t||^2.
func BuildCartpole(cfg Config, log *logging.Logger) (*trajectory.MultiShot, error) {
	dt := withDefaultF(cfg.Dt, 0.01)
	totalSteps := withDefault(cfg.TotalSteps, 40)
	shotLength := withDefault(cfg.ShotLength, 10)

	sim := dynamics.NewEngine(dynamics.NewCartPole(), dt)
	sim.SetPositions(mat.NewVecDense(2, []float64{0, 15 * math.Pi / 180}))

	reg := mapping.NewRegistry(sim.NumDofs())

	objective := loss.New("terminal-plus-effort", func(r rollout.Rollout) float64 {
		poses := r.Poses(mapping.IdentityName)
		vels := r.Vels(mapping.IdentityName)
		forces := r.Forces(mapping.IdentityName)
		t := r.Len() - 1

		posDim, _ := poses.Dims()
		forceDim, _ := forces.Dims()

		sum := 0.0
		for d := 0; d < posDim; d++ {
			sum += poses.At(d, t) * poses.At(d, t)
			sum += vels.At(d, t) * vels.At(d, t)
		}
		for step := 0; step < r.Len(); step++ {
			for d := 0; d < forceDim; d++ {
				sum += forces.At(d, step) * forces.At(d, step)
			}
		}
		return sum
	})

	return trajectory.NewMultiShot(sim, reg, objective, nil, totalSteps, shotLength, cfg.TuneStartingState, cfg.TuneMass, cfg.Parallel, log), nil
}
