package demosolver

import (
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajopt/internal/logging"
)

// GridSeed exhaustively evaluates a problem's loss over a Cartesian grid of
// candidate values for a subrange of the flat decision vector — typically
// the shared mass block — and returns whichever candidate scored lowest, to
// use as the solver's starting point instead of the problem's own
// InitialGuess. Mass-tuning scenarios are prone to landing the descent in a
// bad local basin from an arbitrary starting mass; seeding from a coarse
// grid search over physically plausible masses avoids that without
// requiring a general global optimizer.
type GridSeed struct {
	offset int
	ranges [][]float64
	log    *logging.Logger
}

// NewGridSeed builds a seed search over base's [offset, offset+len(ranges))
// components, trying every value in ranges[i] for component offset+i.
func NewGridSeed(offset int, ranges [][]float64, log *logging.Logger) *GridSeed {
	return &GridSeed{offset: offset, ranges: ranges, log: log}
}

// Search walks the grid depth-first, evaluating base with each candidate
// substituted in, and returns the lowest-scoring candidate found. base is
// never mutated.
func (g *GridSeed) Search(base *mat.VecDense, evalLoss func(x *mat.VecDense) (float64, error)) (*mat.VecDense, float64, error) {
	best := cloneVec(base)
	bestLoss, err := evalLoss(base)
	if err != nil {
		return nil, 0, err
	}

	current := cloneVec(base)
	if err := g.searchRecursive(0, current, evalLoss, &best, &bestLoss); err != nil {
		return nil, 0, err
	}
	return best, bestLoss, nil
}

func (g *GridSeed) searchRecursive(depth int, current *mat.VecDense, evalLoss func(*mat.VecDense) (float64, error), best **mat.VecDense, bestLoss *float64) error {
	if depth == len(g.ranges) {
		loss, err := evalLoss(current)
		if err != nil {
			if g.log != nil {
				g.log.Warn("grid seed candidate rejected", zap.Error(err))
			}
			return nil
		}
		if loss < *bestLoss {
			*bestLoss = loss
			*best = cloneVec(current)
		}
		return nil
	}

	for _, v := range g.ranges[depth] {
		candidate := cloneVec(current)
		candidate.SetVec(g.offset+depth, v)
		if err := g.searchRecursive(depth+1, candidate, evalLoss, best, bestLoss); err != nil {
			return err
		}
	}
	return nil
}
