package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mergeq-sim/mergeq-sim/sim"
	"github.com/mergeq-sim/mergeq-sim/sim/trace"
)

// FileConfig is the YAML config file structure.
// Nil pointer fields mean "not set in YAML" and leave the defaults in place.
type FileConfig struct {
	JobDurationMinutes            *float64 `yaml:"job_duration_minutes"`
	FailureProbability            *float64 `yaml:"failure_probability"`
	MinQueueSize                  *int     `yaml:"min_queue_size"`
	MaxQueueSize                  *int     `yaml:"max_queue_size"`
	SimDurationHours              *float64 `yaml:"sim_duration_hours"`
	Mode                          *string  `yaml:"mode"`
	StabilityDurationHours        *float64 `yaml:"stability_duration_hours"`
	JobsWaitingToEnter            *int     `yaml:"jobs_waiting_to_enter"`
	JobsWaitingToEnterProbability *float64 `yaml:"jobs_waiting_to_enter_probability"`
	FailureModel                  *string  `yaml:"failure_model"`
	Graduation                    *string  `yaml:"graduation"`
	Seed                          *int64   `yaml:"seed"`
	Workers                       *int     `yaml:"workers"`
	Trace                         *string  `yaml:"trace"`
}

// LoadFileConfig parses a YAML config file.
// Uses strict field checking: typos must cause errors.
func LoadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var fc FileConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &fc, nil
}

// Apply overlays every field set in the file onto cfg.
// Fails if a duration does not fit in a time.Duration.
func (fc *FileConfig) Apply(cfg *sim.Config) error {
	if fc.JobDurationMinutes != nil {
		d, err := toDuration("job duration", *fc.JobDurationMinutes, time.Minute)
		if err != nil {
			return err
		}
		cfg.JobDuration = d
	}
	if fc.FailureProbability != nil {
		cfg.FailureProbability = *fc.FailureProbability
	}
	if fc.MinQueueSize != nil {
		cfg.MinQueueSize = *fc.MinQueueSize
	}
	if fc.MaxQueueSize != nil {
		cfg.MaxQueueSize = *fc.MaxQueueSize
	}
	if fc.SimDurationHours != nil {
		d, err := toDuration("simulation duration", *fc.SimDurationHours, time.Hour)
		if err != nil {
			return err
		}
		cfg.SimDuration = d
	}
	if fc.Mode != nil {
		cfg.Mode = sim.RunMode(*fc.Mode)
	}
	if fc.StabilityDurationHours != nil {
		d, err := toDuration("stability duration", *fc.StabilityDurationHours, time.Hour)
		if err != nil {
			return err
		}
		cfg.StabilityDuration = d
	}
	if fc.JobsWaitingToEnter != nil {
		cfg.JobsWaitingToEnter = *fc.JobsWaitingToEnter
	}
	if fc.JobsWaitingToEnterProbability != nil {
		cfg.JobsWaitingToEnterProbability = *fc.JobsWaitingToEnterProbability
	}
	if fc.FailureModel != nil {
		cfg.FailureModel = sim.FailureModel(*fc.FailureModel)
	}
	if fc.Graduation != nil {
		cfg.Graduation = sim.GraduationPolicy(*fc.Graduation)
	}
	if fc.Seed != nil {
		cfg.Seed = *fc.Seed
	}
	if fc.Workers != nil {
		cfg.Workers = *fc.Workers
	}
	if fc.Trace != nil {
		cfg.Trace = trace.TraceLevel(*fc.Trace)
	}
	return nil
}

// resolveConfig layers defaults, the optional config file and explicitly set
// flags, then validates the result. Flags only override the file when the
// user set them (cmd.Flags().Changed), so flag defaults never mask file values.
func resolveConfig(cmd *cobra.Command, o *runOptions) (sim.Config, error) {
	cfg := sim.DefaultConfig()
	failureSet := false

	if !validOutputs[o.output] {
		return cfg, &sim.ConfigError{Field: "output", Reason: fmt.Sprintf("unknown output format %q (want table, yaml or json)", o.output)}
	}

	if o.configPath != "" {
		fc, err := LoadFileConfig(o.configPath)
		if err != nil {
			return cfg, err
		}
		if err := fc.Apply(&cfg); err != nil {
			return cfg, err
		}
		failureSet = fc.FailureProbability != nil
	}

	flags := cmd.Flags()
	if flags.Changed("job-duration") {
		d, err := toDuration("job duration", float64(o.jobDurationMinutes), time.Minute)
		if err != nil {
			return cfg, err
		}
		cfg.JobDuration = d
	}
	if flags.Changed("failure-probability") {
		cfg.FailureProbability = o.failureProbability
		failureSet = true
	}
	if flags.Changed("min-queue-size") {
		cfg.MinQueueSize = o.minQueueSize
	}
	if flags.Changed("max-queue-size") {
		cfg.MaxQueueSize = o.maxQueueSize
	}
	if flags.Changed("sim-duration") {
		d, err := toDuration("simulation duration", float64(o.simDurationHours), time.Hour)
		if err != nil {
			return cfg, err
		}
		cfg.SimDuration = d
	}
	if flags.Changed("mode") {
		cfg.Mode = sim.RunMode(o.mode)
	}
	if flags.Changed("stability-duration") {
		d, err := toDuration("stability duration", float64(o.stabilityDurationHours), time.Hour)
		if err != nil {
			return cfg, err
		}
		cfg.StabilityDuration = d
	}
	if flags.Changed("jobs-waiting-to-enter") {
		cfg.JobsWaitingToEnter = o.jobsWaitingToEnter
	}
	if flags.Changed("jobs-waiting-to-enter-probability") {
		cfg.JobsWaitingToEnterProbability = o.jobsWaitingToEnterProbability
	}
	if flags.Changed("failure-model") {
		cfg.FailureModel = sim.FailureModel(o.failureModel)
	}
	if flags.Changed("graduation") {
		cfg.Graduation = sim.GraduationPolicy(o.graduation)
	}
	if flags.Changed("seed") {
		cfg.Seed = o.seed
	}
	if flags.Changed("workers") {
		cfg.Workers = o.workers
	}
	if flags.Changed("trace") {
		cfg.Trace = trace.TraceLevel(o.traceLevel)
	}

	if cfg.JobDuration == 0 {
		return cfg, &sim.ConfigError{Field: "job duration", Reason: "is required (--job-duration or job_duration_minutes)"}
	}
	if !failureSet {
		return cfg, &sim.ConfigError{Field: "failure probability", Reason: "is required (--failure-probability or failure_probability)"}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// validOutputs is the set of accepted --output values. Empty selects table.
var validOutputs = map[string]bool{"": true, "table": true, "yaml": true, "json": true}

// toDuration converts v units to a time.Duration.
// Returns a *sim.ConfigError when the result would not fit in an int64 of
// nanoseconds; the sign is left for Config.Validate.
func toDuration(field string, v float64, unit time.Duration) (time.Duration, error) {
	limit := float64(math.MaxInt64 / int64(unit))
	if math.IsNaN(v) || math.Abs(v) > limit {
		return 0, &sim.ConfigError{Field: field, Reason: fmt.Sprintf("%v exceeds the maximum of %v", v, limit)}
	}
	return time.Duration(v * float64(unit)), nil
}
