package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"golang.org/x/time/rate"

	"github.com/levelapp/levelgo/internal/driver"
	"github.com/levelapp/levelgo/internal/export"
	"github.com/levelapp/levelgo/internal/judges"
	"github.com/levelapp/levelgo/internal/models"
	"github.com/levelapp/levelgo/internal/orchestration"
	"github.com/levelapp/levelgo/internal/projectconfig"
	"github.com/levelapp/levelgo/internal/spinner"
	"github.com/levelapp/levelgo/internal/validation"
)

var (
	runEndpoint     string
	runModel        string
	runAttempts     int
	runTestName     string
	runWorkers      int
	runCarryContext bool
	runOutputDir    string
	runCSV          bool
	runJUnit        bool
	runVerbose      bool
	runStubJudge    bool
	runMinSuccess   float64
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <batch.yaml|batch.json>",
		Short: "Run a batch evaluation",
		Long: `Run a batch evaluation from a batch definition file.

The batch file defines the scenarios and interactions to drive through the
agent. Judges and the agent endpoint come from .levelapp.yaml and can be
overridden with flags.`,
		Args: cobra.ExactArgs(1),
		RunE: runCommandE,
	}

	cmd.Flags().StringVar(&runEndpoint, "endpoint", "", "Agent endpoint URL (overrides project config)")
	cmd.Flags().StringVar(&runModel, "model", "", "Agent model ID (overrides project config)")
	cmd.Flags().IntVar(&runAttempts, "attempts", 0, "Attempts per scenario (default from project config)")
	cmd.Flags().StringVar(&runTestName, "test-name", "", "Label for this run in the result document")
	cmd.Flags().IntVar(&runWorkers, "workers", 0, "Number of scenarios to run concurrently")
	cmd.Flags().BoolVar(&runCarryContext, "carry-context", false, "Forward conversation history to the agent on each turn")
	cmd.Flags().StringVarP(&runOutputDir, "output", "o", "", "Output directory for result files")
	cmd.Flags().BoolVar(&runCSV, "csv", false, "Also export a per-verdict CSV file")
	cmd.Flags().BoolVar(&runJUnit, "junit", false, "Also export a JUnit XML file for CI systems")
	cmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Verbose output with per-attempt progress")
	cmd.Flags().BoolVar(&runStubJudge, "stub-judge", false, "Score with a deterministic stub judge (dry run)")
	cmd.Flags().Float64Var(&runMinSuccess, "min-success-rate", 0, "Exit non-zero when the success rate falls below this percentage")

	return cmd
}

func runCommandE(cmd *cobra.Command, args []string) error {
	batchPath := args[0]

	cfg, err := projectconfig.Load(".")
	if err != nil {
		return err
	}

	violations, err := validation.ValidateBatchFile(batchPath)
	if err != nil {
		return err
	}
	if len(violations) > 0 {
		return fmt.Errorf("invalid batch file %s:\n  %s", batchPath, strings.Join(violations, "\n  "))
	}

	batch, err := models.LoadTestBatch(batchPath)
	if err != nil {
		return fmt.Errorf("failed to load batch: %w", err)
	}

	judgeList, err := buildJudges(cfg)
	if err != nil {
		return err
	}

	drv, err := buildDriver(cfg)
	if err != nil {
		return err
	}

	runCfg := orchestration.Config{
		TestName:        runTestName,
		ModelID:         runModel,
		Attempts:        runAttempts,
		ScenarioWorkers: runWorkers,
		CarryContext:    runCarryContext,
	}
	if runCfg.ModelID == "" {
		runCfg.ModelID = cfg.Defaults.Model
	}
	if runCfg.Attempts <= 0 {
		runCfg.Attempts = cfg.Defaults.Attempts
	}
	if runCfg.ScenarioWorkers <= 0 {
		runCfg.ScenarioWorkers = cfg.Defaults.Workers
	}
	if !cmd.Flags().Changed("carry-context") && cfg.Defaults.CarryContext != nil {
		runCfg.CarryContext = *cfg.Defaults.CarryContext
	}

	coordinator := orchestration.NewCoordinator(runCfg, judgeList, drv)
	if runVerbose {
		coordinator.AddListener(progressPrinter(cmd))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stopSpinner := func() {}
	if !runVerbose {
		if f, ok := cmd.OutOrStdout().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			stopSpinner = spinner.Start(f, fmt.Sprintf("evaluating batch %s", batch.ID))
		}
	}

	result, err := coordinator.Run(ctx, batch)
	stopSpinner()
	if result == nil {
		return err
	}
	if err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), "run interrupted, exporting partial results") //nolint:errcheck
	}

	outDir := runOutputDir
	if outDir == "" {
		outDir = cfg.Paths.Results
	}
	exporter := export.NewExporter(outDir)
	jsonPath, err := exporter.WriteJSON(result)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "results written to %s\n", jsonPath) //nolint:errcheck

	if runCSV {
		csvPath, err := exporter.WriteCSV(result)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "verdicts written to %s\n", csvPath) //nolint:errcheck
	}

	if runJUnit {
		junitPath, err := exporter.WriteJUnit(result)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "junit report written to %s\n", junitPath) //nolint:errcheck
	}

	fmt.Fprintln(cmd.OutOrStdout(), FormatBatchReport(result)) //nolint:errcheck

	if runMinSuccess > 0 && result.Metadata.SuccessRate < runMinSuccess {
		return &ThresholdError{
			Message: fmt.Sprintf("success rate %.2f%% is below the required %.2f%%",
				result.Metadata.SuccessRate, runMinSuccess),
		}
	}
	return nil
}

func buildJudges(cfg *projectconfig.ProjectConfig) ([]judges.Judge, error) {
	if runStubJudge {
		return []judges.Judge{judges.NewStubJudge("stub", models.MatchExcellent, "stubbed verdict")}, nil
	}

	if len(cfg.Judges) == 0 {
		return nil, fmt.Errorf("no judges configured; add a judges section to %s or pass --stub-judge", projectconfig.ConfigFileName)
	}

	var opts []judges.Option
	if cfg.Agent.RateLimit > 0 {
		opts = append(opts, judges.WithRateLimiter(rate.NewLimiter(rate.Limit(cfg.Agent.RateLimit), 1)))
	}

	list := make([]judges.Judge, 0, len(cfg.Judges))
	for _, jc := range cfg.Judges {
		j, err := judges.Create(judges.Kind(jc.Kind), jc.Name, jc.Parameters, opts...)
		if err != nil {
			return nil, fmt.Errorf("judge %q: %w", jc.Kind, err)
		}
		list = append(list, j)
	}
	return list, nil
}

func buildDriver(cfg *projectconfig.ProjectConfig) (driver.Driver, error) {
	endpoint := runEndpoint
	if endpoint == "" {
		endpoint = cfg.Agent.Endpoint
	}
	if endpoint == "" {
		// Preset-reply batches need no agent; live turns will be marked failed.
		return nil, nil
	}

	dcfg := driver.HTTPConfig{
		Endpoint:   endpoint,
		TimeoutSec: cfg.Agent.Timeout,
	}
	if cfg.Agent.RateLimit > 0 {
		dcfg.Limiter = rate.NewLimiter(rate.Limit(cfg.Agent.RateLimit), 1)
	}
	return driver.NewHTTPDriver(dcfg)
}

func progressPrinter(cmd *cobra.Command) orchestration.ProgressListener {
	out := cmd.OutOrStdout()
	return func(ev orchestration.ProgressEvent) {
		switch ev.Kind {
		case orchestration.EventScenarioStart:
			fmt.Fprintf(out, "▶ scenario %s\n", ev.ScenarioID) //nolint:errcheck
		case orchestration.EventAttemptComplete:
			fmt.Fprintf(out, "  attempt %d/%d: %s\n", ev.AttemptNumber, ev.TotalAttempts, ev.Status) //nolint:errcheck
		case orchestration.EventScenarioComplete:
			fmt.Fprintf(out, "✓ scenario %s done\n", ev.ScenarioID) //nolint:errcheck
		}
	}
}
