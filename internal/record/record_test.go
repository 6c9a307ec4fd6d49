package record_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajopt/internal/demosolver"
	"github.com/san-kum/trajopt/internal/errs"
	"github.com/san-kum/trajopt/internal/logging"
	"github.com/san-kum/trajopt/internal/record"
	"github.com/san-kum/trajopt/internal/scenario"
	"github.com/san-kum/trajopt/internal/trajectory"
)

func TestAppendTracksBestLoss(t *testing.T) {
	rec := record.New(logging.Noop(), nil)

	rec.Append(mat.NewVecDense(1, []float64{0}), 10, mat.NewVecDense(1, []float64{1}), nil, nil, nil)
	rec.Append(mat.NewVecDense(1, []float64{1}), 4, mat.NewVecDense(1, []float64{0.5}), nil, nil, nil)
	rec.Append(mat.NewVecDense(1, []float64{2}), 6, mat.NewVecDense(1, []float64{0.2}), nil, nil, nil)

	require.Len(t, rec.Entries(), 3)

	x, loss, ok := rec.Best()
	require.True(t, ok)
	assert.InDelta(t, 4.0, loss, 1e-12)
	assert.InDelta(t, 1.0, x.AtVec(0), 1e-12)
}

func TestBestIsFalseBeforeAnyAppend(t *testing.T) {
	rec := record.New(logging.Noop(), nil)
	_, _, ok := rec.Best()
	assert.False(t, ok)
}

func TestStoreSaveListLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	st := record.NewStore(dir)
	require.NoError(t, st.Init())

	rec := record.New(logging.Noop(), nil)
	rec.Append(mat.NewVecDense(2, []float64{0, 0}), 9, mat.NewVecDense(2, nil), nil, nil, nil)
	rec.Append(mat.NewVecDense(2, []float64{1, 1}), 2, mat.NewVecDense(2, nil), nil, nil, nil)

	runID, err := st.Save(rec, "sliding-box", "TolerancesReached")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, runID)

	runs, err := st.List()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "sliding-box", runs[0].Scenario)
	assert.Equal(t, 2, runs[0].Iterations)
	assert.InDelta(t, 2.0, runs[0].BestLoss, 1e-9)
	assert.Equal(t, "TolerancesReached", runs[0].Outcome)

	meta, err := st.Load(runID)
	require.NoError(t, err)
	assert.Equal(t, runID, meta.ID)

	points, err := st.LoadIterations(runID)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 0, points[0].Index)
	assert.InDelta(t, 9.0, points[0].Loss, 1e-9)
	assert.Equal(t, 1, points[1].Index)
	assert.InDelta(t, 2.0, points[1].Loss, 1e-9)
}

func TestReoptimizeResumesFromBestAndClearsIterationIndex(t *testing.T) {
	problem, err := scenario.BuildMassRecovery(scenario.Config{}, logging.Noop())
	require.NoError(t, err)

	rec := record.New(logging.Noop(), nil)
	solver := demosolver.New(demosolver.DefaultOptions(), logging.Noop())

	_, err = rec.Reoptimize(problem, func(p trajectory.Problem, start *mat.VecDense, step func(x *mat.VecDense)) (errs.Outcome, error) {
		return solver.Solve(p, start, step)
	})
	require.NoError(t, err)
	require.NotEmpty(t, rec.Entries())

	bestXBefore, bestLossBefore, ok := rec.Best()
	require.True(t, ok)

	_, err = rec.Reoptimize(problem, func(p trajectory.Problem, start *mat.VecDense, step func(x *mat.VecDense)) (errs.Outcome, error) {
		assert.InDeltaSlice(t, bestXBefore.RawVector().Data, start.RawVector().Data, 1e-12)
		return solver.Solve(p, start, step)
	})
	require.NoError(t, err)
	require.NotEmpty(t, rec.Entries())
	assert.Equal(t, 0, rec.Entries()[0].Index)

	for i, e := range rec.Entries() {
		assert.Equal(t, i, e.Index)
	}

	_, bestLossAfter, ok := rec.Best()
	require.True(t, ok)
	assert.LessOrEqual(t, bestLossAfter, bestLossBefore)
}

func TestListOnEmptyDirReturnsNoRuns(t *testing.T) {
	st := record.NewStore(filepath.Join(t.TempDir(), "missing"))
	runs, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, runs)
}
