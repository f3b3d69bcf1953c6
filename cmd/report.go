package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/mergeq-sim/mergeq-sim/sim"
)

// ReportConfig echoes the resolved configuration in report units.
type ReportConfig struct {
	JobDurationMinutes            float64 `yaml:"job_duration_minutes" json:"job_duration_minutes"`
	FailureProbability            float64 `yaml:"failure_probability" json:"failure_probability"`
	MinQueueSize                  int     `yaml:"min_queue_size" json:"min_queue_size"`
	MaxQueueSize                  int     `yaml:"max_queue_size" json:"max_queue_size"`
	DurationHours                 float64 `yaml:"duration_hours" json:"duration_hours"`
	Mode                          string  `yaml:"mode" json:"mode"`
	JobsWaitingToEnter            int     `yaml:"jobs_waiting_to_enter" json:"jobs_waiting_to_enter"`
	JobsWaitingToEnterProbability float64 `yaml:"jobs_waiting_to_enter_probability" json:"jobs_waiting_to_enter_probability"`
	FailureModel                  string  `yaml:"failure_model" json:"failure_model"`
	Graduation                    string  `yaml:"graduation" json:"graduation"`
	Seed                          int64   `yaml:"seed" json:"seed"`
}

// SweepReport is the structured output of one sweep.
type SweepReport struct {
	RunID   string             `yaml:"run_id" json:"run_id"`
	Config  ReportConfig       `yaml:"config" json:"config"`
	Results []*sim.TrialResult `yaml:"results" json:"results"`
}

// NewSweepReport builds a report with a fresh run ID.
func NewSweepReport(cfg sim.Config, results []*sim.TrialResult) *SweepReport {
	return &SweepReport{
		RunID: uuid.NewString(),
		Config: ReportConfig{
			JobDurationMinutes:            cfg.JobDuration.Minutes(),
			FailureProbability:            cfg.FailureProbability,
			MinQueueSize:                  cfg.MinQueueSize,
			MaxQueueSize:                  cfg.MaxQueueSize,
			DurationHours:                 cfg.TargetDuration().Hours(),
			Mode:                          string(cfg.Mode),
			JobsWaitingToEnter:            cfg.JobsWaitingToEnter,
			JobsWaitingToEnterProbability: cfg.JobsWaitingToEnterProbability,
			FailureModel:                  string(cfg.FailureModel),
			Graduation:                    string(cfg.Graduation),
			Seed:                          cfg.Seed,
		},
		Results: results,
	}
}

// WriteReport encodes report to w as "yaml" or "json".
func WriteReport(w io.Writer, format string, report *SweepReport) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encoding yaml report: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encoding json report: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}
