package trajectory

import (
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajopt/internal/rollout"
)

// runParallel unrolls every shot on its own goroutine against an
// independent simulator clone, then joins. Per the bit-identical-with-serial
// contract, each worker writes only into its own slot of results/jacs/errs —
// there is no shared accumulator and no order-dependent reduction, so the
// output does not depend on goroutine scheduling.
func (m *MultiShot) runParallel() error {
	n := len(m.shots)
	dims := m.mappingDims()
	massDim := m.sim.Masses().Len()

	results := make([]rollout.MutableRollout, n)
	jacs := make([]*mat.Dense, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(idx int) {
			defer wg.Done()
			clone := m.shots[idx].CloneWithSimulator(m.sim.Clone())
			r := rollout.NewOwning(clone.Steps(), dims, massDim, m.log)
			if err := clone.Unroll(r); err != nil {
				errs[idx] = err
				return
			}
			results[idx] = r
			jacs[idx] = clone.FinalStateJacobian()
			// GradientBackprop is later called on m.shots[idx] itself, not this
			// clone, so the clone's linearization has to travel back with it.
			m.shots[idx].SetSnapshots(clone.Snapshots())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	m.rollouts = results
	m.finalJacs = jacs
	return nil
}
