package scenario_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/trajopt/internal/logging"
	"github.com/san-kum/trajopt/internal/scenario"
)

func TestRegistryBuildsEveryNamedScenario(t *testing.T) {
	reg := scenario.NewRegistry()
	names := reg.Names()
	require.ElementsMatch(t, []string{
		"sliding-box", "revolute-spinner", "cartpole",
		"mass-recovery", "constrained-cycle", "parallel-jumpworm",
	}, names)

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			problem, err := reg.Build(name, scenario.Config{}, logging.Noop())
			require.NoError(t, err)
			assert.Greater(t, problem.FlatDim(), 0)
			assert.GreaterOrEqual(t, problem.ConstraintDim(), 0)

			x0 := problem.InitialGuess()
			require.Equal(t, problem.FlatDim(), x0.Len())

			loss, err := problem.ComputeLoss(x0)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, loss, 0.0)
		})
	}
}

func TestBuildUnknownScenarioErrors(t *testing.T) {
	reg := scenario.NewRegistry()
	_, err := reg.Build("does-not-exist", scenario.Config{}, logging.Noop())
	assert.Error(t, err)
}

func TestParallelJumpwormRespectsParallelFlag(t *testing.T) {
	reg := scenario.NewRegistry()

	serial, err := reg.Build("parallel-jumpworm", scenario.Config{Parallel: false}, logging.Noop())
	require.NoError(t, err)
	parallel, err := reg.Build("parallel-jumpworm", scenario.Config{Parallel: true}, logging.Noop())
	require.NoError(t, err)

	x0 := serial.InitialGuess()
	serialLoss, err := serial.ComputeLoss(x0)
	require.NoError(t, err)
	parallelLoss, err := parallel.ComputeLoss(x0)
	require.NoError(t, err)

	assert.InDelta(t, serialLoss, parallelLoss, 1e-9)
}
