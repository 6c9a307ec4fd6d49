package trajectory_test

import (
	"gonum.org/v1/gonum/mat"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/trajopt/internal/demosolver"
	"github.com/san-kum/trajopt/internal/errs"
	"github.com/san-kum/trajopt/internal/logging"
	"github.com/san-kum/trajopt/internal/mapping"
	"github.com/san-kum/trajopt/internal/scenario"
	"github.com/san-kum/trajopt/internal/testutil"
)

var _ = Describe("every registered scenario", func() {
	reg := scenario.NewRegistry()

	for _, name := range reg.Names() {
		name := name
		It("solves "+name+" to a lower loss than its initial guess", func() {
			problem, err := reg.Build(name, scenario.Config{}, logging.Noop())
			Expect(err).NotTo(HaveOccurred())

			x0 := problem.InitialGuess()
			initialLoss, err := problem.ComputeLoss(x0)
			Expect(err).NotTo(HaveOccurred())

			solver := demosolver.New(demosolver.DefaultOptions(), logging.Noop())
			var last *mat.VecDense
			outcome, err := solver.Solve(problem, x0, func(x *mat.VecDense) { last = x })
			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(BeElementOf(errs.TolerancesReached, errs.IterationLimit))
			Expect(last).NotTo(BeNil())

			finalLoss, err := problem.ComputeLoss(last)
			Expect(err).NotTo(HaveOccurred())
			Expect(finalLoss).To(BeNumerically("<=", initialLoss))
		})
	}
})

var _ = Describe("the dense and sparse Jacobians", func() {
	It("agree exactly on every structurally nonzero entry", func() {
		problem, err := scenario.BuildConstrainedCycle(scenario.Config{}, logging.Noop())
		Expect(err).NotTo(HaveOccurred())

		x0 := problem.InitialGuess()
		dense, err := problem.BackpropJacobian(x0)
		Expect(err).NotTo(HaveOccurred())

		sparse, err := problem.GetSparseJacobian(x0)
		Expect(err).NotTo(HaveOccurred())

		rows, cols := problem.JacobianSparsityStructure()
		Expect(sparse).To(HaveLen(len(rows)))
		Expect(len(sparse)).To(Equal(problem.NumberNonZeroJacobian()))

		for i := range rows {
			Expect(sparse[i]).To(BeNumerically("~", dense.At(rows[i], cols[i]), 1e-12))
		}
	})
})

var _ = Describe("serial and parallel shot evaluation", func() {
	It("produce bit-identical loss and gradients", func() {
		serial, err := scenario.BuildParallelJumpworm(scenario.Config{Parallel: false}, logging.Noop())
		Expect(err).NotTo(HaveOccurred())
		parallel, err := scenario.BuildParallelJumpworm(scenario.Config{Parallel: true}, logging.Noop())
		Expect(err).NotTo(HaveOccurred())

		x0 := serial.InitialGuess()

		serialLoss, err := serial.ComputeLoss(x0)
		Expect(err).NotTo(HaveOccurred())
		parallelLoss, err := parallel.ComputeLoss(x0)
		Expect(err).NotTo(HaveOccurred())
		Expect(parallelLoss).To(Equal(serialLoss))

		serialGrad, err := serial.BackpropGradient(x0)
		Expect(err).NotTo(HaveOccurred())
		parallelGrad, err := parallel.BackpropGradient(x0)
		Expect(err).NotTo(HaveOccurred())
		Expect(testutil.MaxAbsDiff(serialGrad, parallelGrad)).To(BeNumerically("==", 0))
	})
})

var _ = Describe("the sliding box scenario's analytic gradient", func() {
	It("matches an independent Ridders finite-difference reference", func() {
		problem, err := scenario.BuildSlidingBox(scenario.Config{}, logging.Noop())
		Expect(err).NotTo(HaveOccurred())

		x0 := problem.InitialGuess()
		analytic, err := problem.BackpropGradient(x0)
		Expect(err).NotTo(HaveOccurred())

		reference := testutil.Gradient(func(x *mat.VecDense) float64 {
			loss, err := problem.ComputeLoss(x)
			Expect(err).NotTo(HaveOccurred())
			return loss
		}, x0)

		Expect(testutil.MaxAbsDiff(analytic, reference)).To(BeNumerically("<", 1e-3))
	})
})

var _ = Describe("the mass recovery scenario", func() {
	It("reduces pose-tracking loss substantially by tuning the shared mass", func() {
		problem, err := scenario.BuildMassRecovery(scenario.Config{}, logging.Noop())
		Expect(err).NotTo(HaveOccurred())

		x0 := problem.InitialGuess()
		initialLoss, err := problem.ComputeLoss(x0)
		Expect(err).NotTo(HaveOccurred())

		opts := demosolver.DefaultOptions()
		opts.MaxIterations = 400
		solver := demosolver.New(opts, logging.Noop())

		var last *mat.VecDense
		_, err = solver.Solve(problem, x0, func(x *mat.VecDense) { last = x })
		Expect(err).NotTo(HaveOccurred())
		Expect(last).NotTo(BeNil())

		finalLoss, err := problem.ComputeLoss(last)
		Expect(err).NotTo(HaveOccurred())
		Expect(finalLoss).To(BeNumerically("<", initialLoss*0.5))
	})
})

var _ = Describe("the knot-connected and continuously replayed reconstructions", func() {
	It("are two genuinely different executions that converge as knot defects close", func() {
		problem, err := scenario.BuildConstrainedCycle(scenario.Config{}, logging.Noop())
		Expect(err).NotTo(HaveOccurred())

		x0 := problem.InitialGuess()
		problem.Unflatten(x0)
		initialGap, err := problem.ContinuityGap()
		Expect(err).NotTo(HaveOccurred())
		Expect(initialGap).To(BeNumerically(">=", 0))

		solver := demosolver.New(demosolver.DefaultOptions(), logging.Noop())
		var last *mat.VecDense
		_, err = solver.Solve(problem, x0, func(x *mat.VecDense) { last = x })
		Expect(err).NotTo(HaveOccurred())
		Expect(last).NotTo(BeNil())

		problem.Unflatten(last)
		finalGap, err := problem.ContinuityGap()
		Expect(err).NotTo(HaveOccurred())
		Expect(finalGap).To(BeNumerically("<=", initialGap+1e-9))

		withKnots, err := problem.GetStatesWithKnots()
		Expect(err).NotTo(HaveOccurred())
		withoutKnots, err := problem.GetStatesWithoutKnots()
		Expect(err).NotTo(HaveOccurred())

		wRows, wCols := withKnots.Poses(mapping.IdentityName).Dims()
		woRows, woCols := withoutKnots.Poses(mapping.IdentityName).Dims()
		Expect(wRows).To(Equal(woRows))
		Expect(wCols).To(Equal(woCols))
		Expect(testutil.MaxAbsDiffDense(withKnots.Poses(mapping.IdentityName), withoutKnots.Poses(mapping.IdentityName))).To(BeNumerically("~", finalGap, 1e-9))
	})
})
