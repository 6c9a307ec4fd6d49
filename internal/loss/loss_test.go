package loss_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/trajopt/internal/logging"
	"github.com/san-kum/trajopt/internal/loss"
	"github.com/san-kum/trajopt/internal/mapping"
	"github.com/san-kum/trajopt/internal/rollout"
)

func buildRollout(t *testing.T, steps int, position float64) *rollout.Owning {
	t.Helper()
	dims := []rollout.Dims{{Name: mapping.IdentityName, PosDim: 1, VelDim: 1, ForceDim: 1}}
	r := rollout.NewOwning(steps, dims, 0, logging.Noop())
	for step := 0; step < steps; step++ {
		r.MutablePoses(mapping.IdentityName).Set(0, step, position)
	}
	return r
}

func TestEvalReturnsPlainValue(t *testing.T) {
	l := loss.New("final-pos-squared", func(r rollout.Rollout) float64 {
		t := r.Len() - 1
		p := r.Poses(mapping.IdentityName).At(0, t)
		return p * p
	})

	got := l.Eval(buildRollout(t, 3, 2.0))
	assert.InDelta(t, 4.0, got, 1e-12)
}

func TestFiniteDifferenceGradientMatchesAnalytic(t *testing.T) {
	// f(p) = p^2 at the final step has df/dp = 2p; the FD fallback should
	// land within its own step-size truncation error of that value.
	position := 3.0
	l := loss.New("final-pos-squared", func(r rollout.Rollout) float64 {
		tt := r.Len() - 1
		p := r.Poses(mapping.IdentityName).At(0, tt)
		return p * p
	})

	base := buildRollout(t, 4, position)
	dims := []rollout.Dims{{Name: mapping.IdentityName, PosDim: 1, VelDim: 1, ForceDim: 1}}
	gradOut := rollout.NewOwning(4, dims, 0, logging.Noop())

	value := l.EvalWithGradient(base, gradOut)
	require.InDelta(t, position*position, value, 1e-12)

	gotGrad := gradOut.MutablePoses(mapping.IdentityName).At(0, 3)
	assert.InDelta(t, 2*position, gotGrad, 1e-4)

	// Every earlier timestep does not affect the final-step-only objective.
	for step := 0; step < 3; step++ {
		assert.InDelta(t, 0.0, gradOut.MutablePoses(mapping.IdentityName).At(0, step), 1e-6)
	}
}

func TestWithBoundsMarksConstraint(t *testing.T) {
	l := loss.New("zero", func(r rollout.Rollout) float64 { return 0 }).WithBounds(-1, 1)
	assert.True(t, l.HasBounds())
	lo, hi := l.Bounds()
	assert.Equal(t, -1.0, lo)
	assert.Equal(t, 1.0, hi)
}
