package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/trajopt/internal/demosolver"
	"github.com/san-kum/trajopt/internal/errs"
	"github.com/san-kum/trajopt/internal/logging"
	"github.com/san-kum/trajopt/internal/mapping"
	"github.com/san-kum/trajopt/internal/record"
	"github.com/san-kum/trajopt/internal/scenario"
	"github.com/san-kum/trajopt/internal/trajectory"
	"github.com/san-kum/trajopt/internal/tui"
)

var (
	dataDir        string
	cfgFile        string
	totalSteps     int
	shotLength     int
	dt             float64
	tuneStart      bool
	tuneMass       bool
	parallel       bool
	maxIters       int
	penaltyW       float64
	stepSize       float64
	metricsOn      bool
	metricsAddr    string
	verbose        bool
	representation string
)

// main is the entry point for the trajopt CLI; it registers the run, list,
// inspect and scenarios subcommands and executes the root command, mirroring
// the teacher's flag-heavy cobra root.
func main() {
	rootCmd := &cobra.Command{
		Use:   "trajopt",
		Short: "shooting-method trajectory optimization lab",
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".trajopt", "run storage directory")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "development logging")

	runCmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "build and solve a named scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	runCmd.Flags().StringVar(&cfgFile, "config", "", "scenario config file (yaml), overrides flags below")
	runCmd.Flags().IntVar(&totalSteps, "steps", 0, "total rollout steps (0 = scenario default)")
	runCmd.Flags().IntVar(&shotLength, "shot-length", 0, "steps per shot (0 = scenario default)")
	runCmd.Flags().Float64Var(&dt, "dt", 0, "integration timestep (0 = scenario default)")
	runCmd.Flags().BoolVar(&tuneStart, "tune-start", false, "tune the starting state")
	runCmd.Flags().BoolVar(&tuneMass, "tune-mass", false, "tune the shared mass block")
	runCmd.Flags().BoolVar(&parallel, "parallel", false, "evaluate shots concurrently")
	runCmd.Flags().IntVar(&maxIters, "max-iterations", 0, "solver iteration cap (0 = default)")
	runCmd.Flags().Float64Var(&penaltyW, "penalty-weight", 0, "constraint penalty weight (0 = default)")
	runCmd.Flags().Float64Var(&stepSize, "step-size", 0, "descent step size (0 = default)")
	runCmd.Flags().BoolVar(&metricsOn, "metrics", false, "serve Prometheus metrics for this run")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "address to serve /metrics on, if --metrics is set")
	runCmd.Flags().StringVar(&representation, "representation", "", "reproject the solved trajectory into this registered mapping and save it alongside the run (default: skip)")

	scenariosCmd := &cobra.Command{
		Use:   "scenarios",
		Short: "list registered scenario names",
		RunE:  listScenarios,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		RunE:  listRuns,
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "browse recorded runs interactively",
		RunE:  inspectRuns,
	}

	rootCmd.AddCommand(runCmd, scenariosCmd, listCmd, inspectCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *logging.Logger {
	if verbose {
		return logging.NewDevelopment()
	}
	return logging.NewProduction()
}

func listScenarios(cmd *cobra.Command, args []string) error {
	reg := scenario.NewRegistry()
	for _, name := range reg.Names() {
		fmt.Println(name)
	}
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	name := args[0]
	log := newLogger()
	defer log.Sync()

	cfg := scenario.Config{
		TotalSteps:        totalSteps,
		ShotLength:        shotLength,
		Dt:                dt,
		TuneStartingState: tuneStart,
		TuneMass:          tuneMass,
		Parallel:          parallel,
	}
	if cfgFile != "" {
		fc, err := scenario.LoadFile(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if fc.Scenario != "" {
			name = fc.Scenario
		}
		cfg = fc.Config()
	}

	reg := scenario.NewRegistry()
	problem, err := reg.Build(name, cfg, log)
	if err != nil {
		return err
	}

	opts := demosolver.DefaultOptions()
	if maxIters > 0 {
		opts.MaxIterations = maxIters
	}
	if penaltyW > 0 {
		opts.PenaltyWeight = penaltyW
	}
	if stepSize > 0 {
		opts.StepSize = stepSize
	}
	solver := demosolver.New(opts, log)

	var metrics *record.Metrics
	if metricsOn {
		promReg := prometheus.NewRegistry()
		m, err := record.NewMetrics(promReg, name)
		if err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		metrics = m
		go serveMetrics(promReg, metricsAddr, log)
	}

	rec := record.New(log, metrics)

	fmt.Printf("solving %s...\n", name)
	start := time.Now()
	outcome, err := rec.Reoptimize(problem, func(p trajectory.Problem, x0 *mat.VecDense, step func(x *mat.VecDense)) (errs.Outcome, error) {
		return solver.Solve(p, x0, step)
	})
	elapsed := time.Since(start)
	if err != nil {
		return err
	}

	st := record.NewStore(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(rec, name, outcome.String())
	if err != nil {
		return err
	}

	bestX, bestLoss, ok := rec.Best()
	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("outcome: %s\n", outcome)
	fmt.Printf("iterations: %d\n", len(rec.Entries()))
	fmt.Printf("best loss: %.8g\n", bestLoss)

	if ok {
		problem.Unflatten(bestX)
		if gap, gapErr := problem.ContinuityGap(); gapErr == nil {
			fmt.Printf("continuity gap: %.6g\n", gap)
		} else {
			log.Warn("continuity gap check failed", zap.Error(gapErr))
		}

		if representation != "" {
			if err := exportRepresentation(st, runID, problem, representation, log); err != nil {
				return fmt.Errorf("export representation %q: %w", representation, err)
			}
			fmt.Printf("exported representation %q\n", representation)
		}
	}
	return nil
}

// exportRepresentation reprojects the best solved trajectory's identity-space
// poses/velocities/forces into the named mapping via mapping.Reproject and
// saves the result alongside the run's metadata and iteration trace.
func exportRepresentation(st *record.Store, runID string, problem *trajectory.MultiShot, name string, log *logging.Logger) error {
	mappings := problem.Mappings()
	known := false
	for _, n := range mappings.Names() {
		if n == name {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("no mapping registered under name %q", name)
	}

	combined, err := problem.GetStatesWithKnots()
	if err != nil {
		return fmt.Errorf("reconstruct rollout: %w", err)
	}

	identity := mappings.Get(mapping.IdentityName)
	target := mappings.Get(name)

	oldPoses := mat.DenseCopyOf(combined.Poses(mapping.IdentityName))
	oldVels := mat.DenseCopyOf(combined.Vels(mapping.IdentityName))
	oldForces := mat.DenseCopyOf(combined.Forces(mapping.IdentityName))

	newPoses, newVels, newForces := mapping.Reproject(problem.Simulator(), identity, target, oldPoses, oldVels, oldForces, log)

	data, err := json.MarshalIndent(struct {
		Representation string      `json:"representation"`
		Positions      [][]float64 `json:"positions"`
		Velocities     [][]float64 `json:"velocities"`
		Forces         [][]float64 `json:"forces"`
	}{
		Representation: name,
		Positions:      denseRows(newPoses),
		Velocities:     denseRows(newVels),
		Forces:         denseRows(newForces),
	}, "", "  ")
	if err != nil {
		return err
	}

	return st.SaveRepresentation(runID, name, data)
}

func denseRows(m *mat.Dense) [][]float64 {
	rows, _ := m.Dims()
	out := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = mat.Row(nil, i, m)
	}
	return out
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := record.NewStore(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tITERS\tBEST LOSS\tOUTCOME")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.6g\t%s\n",
			r.ID, r.Scenario, r.Timestamp.Format("2006-01-02 15:04:05"), r.Iterations, r.BestLoss, r.Outcome)
	}
	return w.Flush()
}

func inspectRuns(cmd *cobra.Command, args []string) error {
	st := record.NewStore(dataDir)
	return tui.Run(st)
}

func serveMetrics(reg *prometheus.Registry, addr string, log *logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	log.Info("serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warn("metrics server stopped")
	}
}
