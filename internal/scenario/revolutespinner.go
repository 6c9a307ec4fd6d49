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

// BuildRevoluteSpinner is a single pendulum released at 15 degrees, used to
// exercise the gradient, the dense Jacobian, and a representation round
// trip through an IK mapping registered over the bob node.
func BuildRevoluteSpinner(cfg Config, log *logging.Logger) (*trajectory.MultiShot, error) {
	dt := withDefaultF(cfg.Dt, 0.01)
	totalSteps := withDefault(cfg.TotalSteps, 40)
	shotLength := withDefault(cfg.ShotLength, 10)

	sim := dynamics.NewEngine(dynamics.NewPendulum(), dt)
	sim.SetPositions(mat.NewVecDense(1, []float64{15 * math.Pi / 180}))

	reg := mapping.NewRegistry(sim.NumDofs())
	reg.Register(mapping.NewIK("bob-ik", sim, []string{"bob"}))

	objective := loss.New("settle-energy", func(r rollout.Rollout) float64 {
		t := r.Len() - 1
		theta := r.Poses(mapping.IdentityName).At(0, t)
		omega := r.Vels(mapping.IdentityName).At(0, t)
		return theta*theta + omega*omega
	})

	return trajectory.NewMultiShot(sim, reg, objective, nil, totalSteps, shotLength, cfg.TuneStartingState, cfg.TuneMass, cfg.Parallel, log), nil
}
