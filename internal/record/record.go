// Package record keeps the running history of a solver's poll loop: every
// evaluated point, its loss/gradient/constraints, and the best point seen so
// far. It also supports resuming a stalled or interrupted solve from that
// best point, the way a long-running optimization driver would checkpoint
// itself.
package record

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajopt/internal/errs"
	"github.com/san-kum/trajopt/internal/logging"
	"github.com/san-kum/trajopt/internal/rollout"
	"github.com/san-kum/trajopt/internal/trajectory"
)

// Entry is a single polled iteration's full state: the decision vector the
// solver asked about, what the problem reported back for it, and a snapshot
// of the rollout that produced that loss (deep-copied, since the problem
// reuses its internal buffers on the next poll).
type Entry struct {
	Index          int
	X              *mat.VecDense
	Loss           float64
	Gradient       *mat.VecDense
	Constraints    *mat.VecDense
	SparseJacobian []float64
	Rollout        rollout.Rollout
	Timestamp      time.Time
}

// OptimizationRecord accumulates Entry values across a solve and tracks the
// best loss seen. It is not safe for concurrent Append calls — a solver
// drives one record from a single goroutine, the way the problem it wraps is
// polled sequentially.
type OptimizationRecord struct {
	ID      string
	entries []Entry

	bestIndex int
	bestX     *mat.VecDense
	bestLoss  float64
	haveBest  bool

	log     *logging.Logger
	metrics *Metrics
}

// New creates an empty record with a fresh run identifier. metrics may be
// nil; when non-nil every Append also updates its gauges/counters.
func New(log *logging.Logger, metrics *Metrics) *OptimizationRecord {
	return &OptimizationRecord{
		ID:      uuid.NewString(),
		log:     log,
		metrics: metrics,
	}
}

// Append records one polled iteration. r is deep-copied so later mutation of
// the problem's internal rollout buffers cannot corrupt history.
func (o *OptimizationRecord) Append(x *mat.VecDense, loss float64, gradient, constraints *mat.VecDense, sparseJac []float64, r rollout.Rollout) {
	entry := Entry{
		Index:          len(o.entries),
		X:              cloneVec(x),
		Loss:           loss,
		Gradient:       cloneVec(gradient),
		Constraints:    cloneVec(constraints),
		SparseJacobian: append([]float64(nil), sparseJac...),
		Timestamp:      time.Now(),
	}
	if r != nil {
		entry.Rollout = r.DeepCopy()
	}
	o.entries = append(o.entries, entry)

	if !o.haveBest || loss < o.bestLoss {
		o.haveBest = true
		o.bestIndex = entry.Index
		o.bestLoss = loss
		o.bestX = cloneVec(x)
	}

	if o.metrics != nil {
		o.metrics.observe(entry, o.bestLoss)
	}
	if o.log != nil {
		o.log.Debug("optimization iteration recorded", zap.Int("index", entry.Index), zap.Float64("loss", loss))
	}
}

// Entries returns every recorded iteration in poll order.
func (o *OptimizationRecord) Entries() []Entry {
	return o.entries
}

// Best returns the lowest-loss decision vector seen and its loss. ok is
// false if nothing has been recorded yet.
func (o *OptimizationRecord) Best() (x *mat.VecDense, loss float64, ok bool) {
	if !o.haveBest {
		return nil, 0, false
	}
	return cloneVec(o.bestX), o.bestLoss, true
}

// Reoptimize resumes a solve from the record's current best point: it hands
// poll back to solve starting at bestX rather than the problem's own
// InitialGuess, clears the iteration index so the next Append starts this
// pass's history at 0, then appends every iteration solve reports through
// step. This is the re-entrant path a caller takes after a solve hits an
// iteration limit or plateaus without reaching tolerances. The running best
// (bestX/bestLoss) survives the reset, since resuming is pointless if it
// forgets what it already found.
func (o *OptimizationRecord) Reoptimize(problem trajectory.Problem, solve func(p trajectory.Problem, start *mat.VecDense, step func(x *mat.VecDense)) (errs.Outcome, error)) (errs.Outcome, error) {
	start := problem.InitialGuess()
	if o.haveBest {
		start = cloneVec(o.bestX)
	}
	o.entries = nil
	return solve(problem, start, func(x *mat.VecDense) {
		o.recordFromProblem(problem, x)
	})
}

// recordFromProblem polls problem at x for every quantity Append needs. A
// failed poll is logged and skipped rather than aborting the whole solve —
// one bad step should not erase the history collected so far.
func (o *OptimizationRecord) recordFromProblem(problem trajectory.Problem, x *mat.VecDense) {
	loss, err := problem.ComputeLoss(x)
	if err != nil {
		if o.log != nil {
			o.log.Warn("skipping record: loss evaluation failed", zap.Error(err))
		}
		return
	}
	grad, err := problem.BackpropGradient(x)
	if err != nil {
		if o.log != nil {
			o.log.Warn("skipping record: gradient evaluation failed", zap.Error(err))
		}
		return
	}
	constraints, err := problem.ComputeConstraints(x)
	if err != nil {
		if o.log != nil {
			o.log.Warn("skipping record: constraint evaluation failed", zap.Error(err))
		}
		return
	}
	sparse, err := problem.GetSparseJacobian(x)
	if err != nil {
		if o.log != nil {
			o.log.Warn("skipping record: sparse jacobian evaluation failed", zap.Error(err))
		}
		return
	}

	var r rollout.Rollout
	if ms, ok := problem.(rolloutSource); ok {
		r, _ = ms.GetStatesWithKnots()
	}

	o.Append(x, loss, grad, constraints, sparse, r)
}

// rolloutSource is satisfied by any Problem that can also report its
// trajectory, which MultiShot does. Recording falls back to a nil rollout
// for a Problem implementation that cannot.
type rolloutSource interface {
	GetStatesWithKnots() (rollout.Rollout, error)
}

func cloneVec(v *mat.VecDense) *mat.VecDense {
	if v == nil {
		return nil
	}
	out := mat.NewVecDense(v.Len(), nil)
	out.CopyVec(v)
	return out
}
