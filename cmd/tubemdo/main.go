package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/tubemdo/tubemdo/internal/config"
	"github.com/tubemdo/tubemdo/internal/driver"
	"github.com/tubemdo/tubemdo/internal/graph"
	"github.com/tubemdo/tubemdo/internal/mdo"
	"github.com/tubemdo/tubemdo/internal/models"
	"github.com/tubemdo/tubemdo/internal/store"
	"github.com/tubemdo/tubemdo/internal/study"
	"github.com/tubemdo/tubemdo/internal/tui"
)

var (
	dataDir    string
	configFile string
	preset     string

	solverName string
	solverTol  float64
	relax      float64
	optTol     float64
	optIter    int

	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int
	workers    int
	live       bool

	exportOut string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tubemdo",
		Short: "tube transport design optimization",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".tubemdo", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")

	evalCmd := &cobra.Command{
		Use:   "eval",
		Short: "evaluate the tube system once",
		RunE:  runEval,
	}
	addSolverFlags(evalCmd)

	optimizeCmd := &cobra.Command{
		Use:   "optimize",
		Short: "minimize the objective over the design variables",
		RunE:  runOptimize,
	}
	addSolverFlags(optimizeCmd)
	addDriverFlags(optimizeCmd)
	optimizeCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "re-optimize across a parameter sweep",
		RunE:  runSweep,
	}
	addSolverFlags(sweepCmd)
	addDriverFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	sweepCmd.Flags().StringVar(&sweepParam, "param", "", "parameter to sweep")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0, "sweep range start")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 0, "sweep range end")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 0, "number of sweep points")
	sweepCmd.Flags().IntVar(&workers, "workers", 1, "parallel workers")
	sweepCmd.Flags().BoolVar(&live, "live", false, "show live progress view")

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "show the analysis graph and evaluation order",
		RunE:  runInspect,
	}
	addSolverFlags(inspectCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored studies",
		RunE:  listStudies,
	}

	showCmd := &cobra.Command{
		Use:   "show [study_id]",
		Short: "show study results",
		Args:  cobra.ExactArgs(1),
		RunE:  showStudy,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [study_id]",
		Short: "export study points to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVar(&exportOut, "out", "", "output file (default stdout)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [study_id]",
		Short: "export study points to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVar(&exportOut, "out", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets [kind]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := []string{"optimize", "sweep"}
			if len(args) > 0 {
				kinds = args
			}
			for _, kind := range kinds {
				names := config.ListPresets(kind)
				if len(names) == 0 {
					fmt.Printf("no presets for: %s\n", kind)
					continue
				}
				sort.Strings(names)
				fmt.Printf("%s presets:\n", kind)
				for _, name := range names {
					fmt.Printf("  %s\n", name)
				}
			}
			return nil
		},
	}

	rootCmd.AddCommand(evalCmd, optimizeCmd, sweepCmd, inspectCmd, listCmd, showCmd, exportCSVCmd, exportJSONCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSolverFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&solverName, "solver", "fixed_point", "residual solver (fixed_point, newton)")
	cmd.Flags().Float64Var(&solverTol, "solver-tol", config.DefaultSolverTol, "residual convergence tolerance")
	cmd.Flags().Float64Var(&relax, "relax", config.DefaultRelax, "fixed-point relaxation factor")
}

func addDriverFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&optTol, "opt-tol", config.DefaultOptTol, "optimizer convergence tolerance")
	cmd.Flags().IntVar(&optIter, "opt-iter", config.DefaultOptMaxIter, "optimizer iteration limit")
}

// loadConfig layers preset, config file, then explicit CLI flags.
func loadConfig(cmd *cobra.Command, presetKind string) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(presetKind, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(presetKind))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("solver") {
		cfg.Solver.Strategy = solverName
	}
	if cmd.Flags().Changed("solver-tol") {
		cfg.Solver.Tol = solverTol
	}
	if cmd.Flags().Changed("relax") {
		cfg.Solver.Relax = relax
	}
	if cmd.Flags().Changed("opt-tol") {
		cfg.Driver.Tol = optTol
	}
	if cmd.Flags().Changed("opt-iter") {
		cfg.Driver.MaxIter = optIter
	}
	if cmd.Flags().Changed("param") {
		cfg.Sweep.Parameter = sweepParam
	}
	if cmd.Flags().Changed("min") {
		cfg.Sweep.Min = sweepMin
	}
	if cmd.Flags().Changed("max") {
		cfg.Sweep.Max = sweepMax
	}
	if cmd.Flags().Changed("steps") {
		cfg.Sweep.Steps = sweepSteps
	}
	if cmd.Flags().Changed("workers") {
		cfg.Sweep.Workers = workers
	}
	return cfg, nil
}

func buildGroup(cfg *config.Config) (*graph.Group, *mdo.Scope, error) {
	s, err := cfg.BuildSolver()
	if err != nil {
		return nil, nil, err
	}
	g, err := models.BuildTubeGroup(s)
	if err != nil {
		return nil, nil, err
	}
	return g, cfg.BuildScope(models.DefaultInputs()), nil
}

func runEval(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, "optimize")
	if err != nil {
		return err
	}
	g, sc, err := buildGroup(cfg)
	if err != nil {
		return err
	}

	start := time.Now()
	out, err := g.Evaluate(sc.Values())
	if err != nil {
		return err
	}
	fmt.Printf("evaluated %s in %v\n\n", g.Name(), time.Since(start))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "OUTPUT\tVALUE")
	for _, name := range out.Names() {
		fmt.Fprintf(w, "%s\t%.6g\n", name, out[name])
	}
	return w.Flush()
}

func runOptimize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, "optimize")
	if err != nil {
		return err
	}
	g, sc, err := buildGroup(cfg)
	if err != nil {
		return err
	}
	prob, err := cfg.BuildProblem()
	if err != nil {
		return err
	}
	d := cfg.BuildDriver()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("minimizing %s over %d design vars...\n", prob.Objective, len(prob.DesignVars))
	start := time.Now()
	res, optErr := d.Optimize(ctx, prob, models.Evaluator(g, sc))
	fmt.Printf("finished in %v\n\n", time.Since(start))

	printResult(prob, res)
	return optErr
}

func printResult(prob driver.Problem, res driver.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DESIGN VAR\tVALUE\tLOWER\tUPPER")
	for _, dv := range prob.DesignVars {
		fmt.Fprintf(w, "%s\t%.6g\t%.6g\t%.6g\n", dv.Name, res.X[dv.Name], dv.Lower, dv.Upper)
	}
	w.Flush()

	fmt.Printf("\nobjective %s = %.6g\n", prob.Objective, res.Objective)
	if len(prob.Constraints) > 0 {
		fmt.Println("\nconstraints:")
		cw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, c := range prob.Constraints {
			fmt.Fprintf(cw, "  %s\t%s %.6g\t= %.6g\n", c.Output, c.Relation, c.Bound, res.Constraints[c.Output])
		}
		cw.Flush()
	}
	status := "converged"
	if !res.Converged {
		status = "not converged"
	}
	fmt.Printf("\n%s after %d iterations, %d evaluations (violation %.3e)\n",
		status, res.Iterations, res.Evaluations, res.Violation)
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, "sweep")
	if err != nil {
		return err
	}
	if cfg.Sweep.Parameter == "" {
		return fmt.Errorf("no sweep parameter set (use --param or a config file)")
	}

	prob, err := cfg.BuildProblem()
	if err != nil {
		return err
	}
	d := cfg.BuildDriver()
	values := cfg.Sweep.Points()

	build := func(v float64) (driver.Problem, driver.EvalFunc, error) {
		g, sc, err := buildGroup(cfg)
		if err != nil {
			return driver.Problem{}, nil, err
		}
		if !sc.Set(cfg.Sweep.Parameter, v) {
			sc.Add(mdo.NewVariable(cfg.Sweep.Parameter, v, ""))
		}
		return prob, models.Evaluator(g, sc), nil
	}

	sw := &study.Study{
		Parameter: cfg.Sweep.Parameter,
		Values:    values,
		Workers:   cfg.Sweep.Workers,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var points []study.Point
	var runErr error
	start := time.Now()

	if live {
		points, runErr = tui.RunSweep(cfg.Sweep.Parameter, cfg.Objective, values,
			func(obs study.Observer) ([]study.Point, error) {
				sw.Observer = obs
				return sw.Run(ctx, d, build)
			})
	} else {
		fmt.Printf("sweeping %s over %d points (%d workers)...\n",
			cfg.Sweep.Parameter, len(values), max(1, cfg.Sweep.Workers))
		sw.Observer = func(index int, pt study.Point) {
			if pt.Err != "" {
				fmt.Printf("  %s=%.6g  failed: %s\n", cfg.Sweep.Parameter, pt.Value, pt.Err)
				return
			}
			fmt.Printf("  %s=%.6g  %s=%.6g  (%d iters)\n",
				cfg.Sweep.Parameter, pt.Value, cfg.Objective, pt.Result.Objective, pt.Result.Iterations)
		}
		points, runErr = sw.Run(ctx, d, build)
	}
	elapsed := time.Since(start)

	if len(points) == 0 {
		if runErr != nil {
			return runErr
		}
		return fmt.Errorf("sweep produced no points")
	}

	st := store.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	studyID, err := st.Save(cfg.Sweep.Parameter, cfg.Objective, cfg.Sweep.Workers, points)
	if err != nil {
		return err
	}

	fmt.Printf("\ncompleted %d/%d points in %v\n", len(points), len(values), elapsed)
	fmt.Printf("study id: %s\n", studyID)
	if !live {
		plotPoints(cfg.Sweep.Parameter, cfg.Objective, points)
	}
	return runErr
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, "optimize")
	if err != nil {
		return err
	}
	g, _, err := buildGroup(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("group: %s\n", g.Name())
	mode := "explicit"
	if g.IsImplicit() {
		mode = "implicit"
	}
	fmt.Printf("mode: %s\n\n", mode)

	fmt.Println("evaluation order:")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  MEMBER\tINPUTS\tOUTPUTS")
	for _, m := range g.Members() {
		fmt.Fprintf(w, "  %s\t%d\t%d\n", m.Name(), len(m.Inputs()), len(m.Outputs()))
	}
	w.Flush()

	if fb := g.Feedback(); len(fb) > 0 {
		fmt.Println("\nfeedback connections:")
		for _, c := range fb {
			fmt.Printf("  %s -> %s\n", c.From, c.To)
		}
	}
	return nil
}

func listStudies(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	studies, err := st.List()
	if err != nil {
		return err
	}
	if len(studies) == 0 {
		fmt.Println("no studies found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPARAMETER\tTIME\tPOINTS\tCONVERGED\tFAILED")
	for _, s := range studies {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n",
			s.ID, s.Parameter, s.Timestamp.Format("2006-01-02 15:04:05"),
			s.Points, s.Converged, s.Failed)
	}
	return w.Flush()
}

func showStudy(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	points, err := st.LoadPoints(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("study: %s\n", meta.ID)
	fmt.Printf("sweep: %s, minimize %s\n", meta.Parameter, meta.Objective)
	fmt.Printf("points: %d (%d converged, %d failed)\n\n", meta.Points, meta.Converged, meta.Failed)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VALUE\tOBJECTIVE\tVIOLATION\tITERS\tSTATUS")
	for _, pt := range points {
		status := "ok"
		if pt.Err != "" {
			status = pt.Err
		} else if !pt.Result.Converged {
			status = "not converged"
		}
		fmt.Fprintf(w, "%.6g\t%.6g\t%.3e\t%d\t%s\n",
			pt.Value, pt.Result.Objective, pt.Result.Violation, pt.Result.Iterations, status)
	}
	w.Flush()

	plotPoints(meta.Parameter, meta.Objective, points)
	return nil
}

func plotPoints(parameter, objective string, points []study.Point) {
	data := make([]float64, 0, len(points))
	for _, pt := range points {
		if pt.Err == "" {
			data = append(data, pt.Result.Objective)
		}
	}
	if len(data) < 2 {
		return
	}
	fmt.Println()
	fmt.Println(asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(70),
		asciigraph.Caption(fmt.Sprintf("%s vs %s", objective, parameter)),
	))
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	points, err := st.LoadPoints(args[0])
	if err != nil {
		return err
	}
	if len(points) == 0 {
		return fmt.Errorf("no data to export")
	}
	if exportOut != "" {
		return store.ExportCSV(exportOut, points)
	}
	return store.WriteCSV(os.Stdout, points)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	points, err := st.LoadPoints(args[0])
	if err != nil {
		return err
	}
	if exportOut != "" {
		return store.ExportJSON(exportOut, meta.Parameter, meta.Objective, points)
	}
	return store.ExportJSONStdout(meta.Parameter, meta.Objective, points)
}
