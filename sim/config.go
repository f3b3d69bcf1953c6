package sim

import (
	"fmt"
	"runtime"
	"time"

	"github.com/mergeq-sim/mergeq-sim/sim/trace"
)

// RunMode selects the per-trial stop condition.
type RunMode string

const (
	// ModeSinglePass stops each trial once the clock reaches SimDuration.
	ModeSinglePass RunMode = "single-pass"
	// ModeStability stops each trial after the fixed StabilityDuration.
	ModeStability RunMode = "stability"
)

// ValidRunModes is the set of recognized run modes. Empty selects ModeSinglePass.
var ValidRunModes = map[RunMode]bool{"": true, ModeSinglePass: true, ModeStability: true}

// GraduationPolicy selects which jobs merge at the end of a round.
type GraduationPolicy string

const (
	// GraduateSpeculative merges, head first, every job whose build passed:
	// the whole queue in a clean round, the jobs ahead of the failure otherwise.
	GraduateSpeculative GraduationPolicy = "speculative"
	// GraduateHeadOnly merges at most the head, and only in a round without failure.
	GraduateHeadOnly GraduationPolicy = "head-only"
)

// ValidGraduationPolicies is the set of recognized graduation policies.
// Empty selects GraduateSpeculative.
var ValidGraduationPolicies = map[GraduationPolicy]bool{"": true, GraduateSpeculative: true, GraduateHeadOnly: true}

// DefaultStabilityDuration is the long-run duration used in stability mode.
const DefaultStabilityDuration = 10000 * time.Hour

// Config is the validated, read-only input to a sweep. It is shared by all
// trials and never mutated once the sweep starts.
type Config struct {
	JobDuration        time.Duration // wall time of one build round (must be > 0)
	FailureProbability float64       // in [0,1]
	MinQueueSize       int           // smallest capacity swept (>= 1)
	MaxQueueSize       int           // largest capacity swept (>= MinQueueSize)
	SimDuration        time.Duration // single-pass target (must be > 0)
	Mode               RunMode
	StabilityDuration  time.Duration // stability-mode duration (0 = DefaultStabilityDuration)

	JobsWaitingToEnter            int     // slots withheld when backpressure triggers (>= 0)
	JobsWaitingToEnterProbability float64 // per-round trigger probability, in [0,1]

	FailureModel FailureModel
	Graduation   GraduationPolicy

	Seed    int64
	Workers int // parallel trials (0 = GOMAXPROCS)
	Trace   trace.TraceLevel
}

// DefaultConfig returns the defaults applied before config files and flags.
// JobDuration and FailureProbability have no meaningful default and must be set.
func DefaultConfig() Config {
	return Config{
		MinQueueSize:      1,
		MaxQueueSize:      10,
		SimDuration:       10000 * time.Hour,
		Mode:              ModeSinglePass,
		StabilityDuration: DefaultStabilityDuration,
		FailureModel:      FailurePerJob,
		Graduation:        GraduateSpeculative,
		Seed:              42,
		Trace:             trace.TraceLevelNone,
	}
}

// Validate checks every field against its domain.
// Returns a *ConfigError describing the first violation.
func (c Config) Validate() error {
	if c.JobDuration <= 0 {
		return &ConfigError{Field: "job duration", Reason: fmt.Sprintf("must be positive, got %s", c.JobDuration)}
	}
	if c.FailureProbability < 0 || c.FailureProbability > 1 {
		return &ConfigError{Field: "failure probability", Reason: fmt.Sprintf("must be between 0 and 1, got %v", c.FailureProbability)}
	}
	if c.MinQueueSize < 1 {
		return &ConfigError{Field: "min queue size", Reason: fmt.Sprintf("must be at least 1, got %d", c.MinQueueSize)}
	}
	if c.MaxQueueSize < c.MinQueueSize {
		return &ConfigError{Field: "max queue size", Reason: fmt.Sprintf("must be >= min queue size %d, got %d", c.MinQueueSize, c.MaxQueueSize)}
	}
	if c.SimDuration <= 0 {
		return &ConfigError{Field: "simulation duration", Reason: fmt.Sprintf("must be positive, got %s", c.SimDuration)}
	}
	if c.StabilityDuration < 0 {
		return &ConfigError{Field: "stability duration", Reason: fmt.Sprintf("must be non-negative, got %s", c.StabilityDuration)}
	}
	if c.JobsWaitingToEnter < 0 {
		return &ConfigError{Field: "jobs waiting to enter", Reason: fmt.Sprintf("must be non-negative, got %d", c.JobsWaitingToEnter)}
	}
	if c.JobsWaitingToEnterProbability < 0 || c.JobsWaitingToEnterProbability > 1 {
		return &ConfigError{Field: "jobs waiting to enter probability", Reason: fmt.Sprintf("must be between 0 and 1, got %v", c.JobsWaitingToEnterProbability)}
	}
	if !ValidRunModes[c.Mode] {
		return &ConfigError{Field: "mode", Reason: fmt.Sprintf("unknown run mode %q", c.Mode)}
	}
	if !ValidFailureModels[c.FailureModel] {
		return &ConfigError{Field: "failure model", Reason: fmt.Sprintf("unknown failure model %q", c.FailureModel)}
	}
	if !ValidGraduationPolicies[c.Graduation] {
		return &ConfigError{Field: "graduation", Reason: fmt.Sprintf("unknown graduation policy %q", c.Graduation)}
	}
	if c.Workers < 0 {
		return &ConfigError{Field: "workers", Reason: fmt.Sprintf("must be non-negative, got %d", c.Workers)}
	}
	if !trace.IsValidTraceLevel(string(c.Trace)) {
		return &ConfigError{Field: "trace level", Reason: fmt.Sprintf("unknown trace level %q", c.Trace)}
	}
	return nil
}

// Capacities returns the swept queue capacities in ascending order.
func (c Config) Capacities() []int {
	if c.MaxQueueSize < c.MinQueueSize {
		return nil
	}
	sizes := make([]int, 0, c.MaxQueueSize-c.MinQueueSize+1)
	for size := c.MinQueueSize; size <= c.MaxQueueSize; size++ {
		sizes = append(sizes, size)
	}
	return sizes
}

// TargetDuration returns the clock value at which each trial stops.
func (c Config) TargetDuration() time.Duration {
	if c.Mode == ModeStability {
		if c.StabilityDuration > 0 {
			return c.StabilityDuration
		}
		return DefaultStabilityDuration
	}
	return c.SimDuration
}

// EffectiveWorkers returns the number of trials that may run in parallel.
func (c Config) EffectiveWorkers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}
