package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mergeq-sim/mergeq-sim/sim"
	"github.com/mergeq-sim/mergeq-sim/sim/sweep"
	"github.com/mergeq-sim/mergeq-sim/sim/trace"
)

// runOptions holds the raw CLI flag values for the run command.
// Durations are in the units operators think in: job minutes, simulation hours.
type runOptions struct {
	configPath string // optional YAML config file
	logLevel   string // log verbosity level

	jobDurationMinutes            int     // duration of each job
	failureProbability            float64 // per-job failure probability
	minQueueSize                  int     // smallest queue size simulated
	maxQueueSize                  int     // largest queue size simulated
	simDurationHours              int     // single-pass simulation duration
	mode                          string  // single-pass or stability
	stabilityDurationHours        int     // long-run duration for stability mode
	jobsWaitingToEnter            int     // slots withheld under entry backpressure
	jobsWaitingToEnterProbability float64 // chance of backpressure per round
	failureModel                  string  // per-job or per-round
	graduation                    string  // speculative or head-only
	seed                          int64   // master seed for trial streams
	workers                       int     // trials run in parallel
	traceLevel                    string  // none or rounds

	output          string  // table, yaml or json
	metricsFile     string  // Prometheus textfile destination
	littleTolerance float64 // relative Little's-Law divergence that triggers a warning (0 = off)
}

var opts runOptions

// version is overridden at build time with -ldflags "-X github.com/mergeq-sim/mergeq-sim/cmd.version=..."
var version = "dev"

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "mergeq-sim",
	Short: "Throughput simulator for speculative merge queues",
}

// runCmd sweeps queue capacities using parameters from the config file and CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate throughput and time to merge across a range of queue sizes",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(opts.logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", opts.logLevel)
		}
		logrus.SetLevel(level)

		if err := executeRun(cmd.Context(), cmd, &opts, os.Stdout); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

// versionCmd prints the build version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the mergeq-sim version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "mergeq-sim %s\n", version)
	},
}

// executeRun resolves the configuration, runs the sweep and writes the output.
func executeRun(ctx context.Context, cmd *cobra.Command, o *runOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := resolveConfig(cmd, o)
	if err != nil {
		return err
	}
	logrus.Infof("Starting sweep: job=%s failure=%v queue=%d..%d horizon=%s waiting=%d@%v model=%s graduation=%s seed=%d",
		cfg.JobDuration, cfg.FailureProbability, cfg.MinQueueSize, cfg.MaxQueueSize, cfg.TargetDuration(),
		cfg.JobsWaitingToEnter, cfg.JobsWaitingToEnterProbability, cfg.FailureModel, cfg.Graduation, cfg.Seed)

	var metrics *sweep.Metrics
	if o.metricsFile != "" {
		metrics = sweep.NewMetrics()
	}

	outcomes, err := sweep.Run(ctx, cfg, metrics)
	if err != nil {
		return err
	}
	results := sweep.Results(outcomes)

	for _, outcome := range outcomes {
		if outcome.Trace != nil {
			s := trace.Summarize(outcome.Trace)
			logrus.Infof("[capacity %d] rounds=%d failure_rounds=%d graduations=%d restarts=%d withheld=%d occupancy=[%d,%d]",
				outcome.Trace.Capacity, s.Rounds, s.FailureRounds, s.Graduations, s.Restarts, s.Withheld,
				s.MinOccupancy, s.MaxOccupancy)
		}
		if o.littleTolerance > 0 {
			if err := outcome.Result.CheckLittle(o.littleTolerance); err != nil {
				logrus.Warnf("Little's-Law cross-check: %v", err)
			}
		}
	}

	if metrics != nil {
		if err := metrics.WriteTextfile(o.metricsFile); err != nil {
			return fmt.Errorf("writing metrics file: %w", err)
		}
		logrus.Infof("Wrote metrics to %s", o.metricsFile)
	}

	switch o.output {
	case "", "table":
		return RenderTable(out, cfg, results)
	case "yaml", "json":
		return WriteReport(out, o.output, NewSweepReport(cfg, results))
	default:
		return fmt.Errorf("unknown output format %q", o.output)
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// registerRunFlags binds the run command's flags to o.
func registerRunFlags(cmd *cobra.Command, o *runOptions) {
	defaults := sim.DefaultConfig()
	flags := cmd.Flags()

	flags.StringVar(&o.configPath, "config", "", "YAML config file; explicitly set flags override its values")
	flags.StringVar(&o.logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	flags.IntVar(&o.jobDurationMinutes, "job-duration", 0, "Job duration in minutes")
	flags.Float64Var(&o.failureProbability, "failure-probability", 0, "Job failure probability expressed as a number between 0 and 1")
	flags.IntVar(&o.minQueueSize, "min-queue-size", defaults.MinQueueSize, "Minimum queue size to simulate")
	flags.IntVar(&o.maxQueueSize, "max-queue-size", defaults.MaxQueueSize, "Maximum queue size to simulate")
	flags.IntVar(&o.simDurationHours, "sim-duration", int(defaults.SimDuration.Hours()), "Simulation duration in hours")
	flags.StringVar(&o.mode, "mode", string(defaults.Mode), "Run mode: single-pass (stop at --sim-duration) or stability (stop at --stability-duration)")
	flags.IntVar(&o.stabilityDurationHours, "stability-duration", int(defaults.StabilityDuration.Hours()), "Long-run duration in hours used by stability mode")
	flags.IntVar(&o.jobsWaitingToEnter, "jobs-waiting-to-enter", 0, "Number of freed slots held empty when jobs are waiting to enter the queue")
	flags.Float64Var(&o.jobsWaitingToEnterProbability, "jobs-waiting-to-enter-probability", 0, "Probability per round that jobs are waiting to enter the queue, between 0 and 1")
	flags.StringVar(&o.failureModel, "failure-model", string(defaults.FailureModel), "Failure model: per-job (each job fails independently) or per-round (one failure draw, uniform position)")
	flags.StringVar(&o.graduation, "graduation", string(defaults.Graduation), "Graduation policy: speculative (all passing jobs ahead of a failure merge) or head-only")
	flags.Int64Var(&o.seed, "seed", defaults.Seed, "Master seed for per-trial random streams")
	flags.IntVar(&o.workers, "workers", 0, "Trials run in parallel (0 = GOMAXPROCS)")
	flags.StringVar(&o.traceLevel, "trace", string(defaults.Trace), "Trace level: none or rounds")

	flags.StringVar(&o.output, "output", "table", "Output format: table, yaml or json")
	flags.StringVar(&o.metricsFile, "metrics-file", "", "Write Prometheus metrics in textfile format to this path")
	flags.Float64Var(&o.littleTolerance, "little-tolerance", 0, "Warn when the Little's-Law estimate diverges from measured sojourn by more than this fraction (0 = off)")

	// Accept the underscore spellings used by earlier versions of the tool.
	flags.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
}

// init sets up CLI flags and subcommands
func init() {
	registerRunFlags(runCmd, &opts)

	// Attach `run` and `version` as subcommands to `root`
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}
