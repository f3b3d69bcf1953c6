package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mergeq-sim/mergeq-sim/sim"
	"github.com/mergeq-sim/mergeq-sim/sim/trace"
)

// newTestRunCmd returns a fresh run command with flags bound to o and args parsed.
func newTestRunCmd(t *testing.T, o *runOptions, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "run"}
	registerRunFlags(cmd, o)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mergeq.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestResolveConfig_FlagsOnly(t *testing.T) {
	var o runOptions
	cmd := newTestRunCmd(t, &o, "--job-duration", "30", "--failure-probability", "0.1", "--max-queue-size", "5")

	cfg, err := resolveConfig(cmd, &o)

	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.JobDuration)
	assert.Equal(t, 0.1, cfg.FailureProbability)
	assert.Equal(t, 1, cfg.MinQueueSize)
	assert.Equal(t, 5, cfg.MaxQueueSize)
	assert.Equal(t, 10000*time.Hour, cfg.SimDuration)
	assert.Equal(t, sim.FailurePerJob, cfg.FailureModel)
	assert.Equal(t, sim.GraduateSpeculative, cfg.Graduation)
}

func TestResolveConfig_UnderscoreFlagSpellings(t *testing.T) {
	var o runOptions
	cmd := newTestRunCmd(t, &o,
		"--job_duration", "20", "--failure_probability", "0.2",
		"--jobs_waiting_to_enter", "2", "--jobs_waiting_to_enter_probability", "0.1")

	cfg, err := resolveConfig(cmd, &o)

	require.NoError(t, err)
	assert.Equal(t, 20*time.Minute, cfg.JobDuration)
	assert.Equal(t, 0.2, cfg.FailureProbability)
	assert.Equal(t, 2, cfg.JobsWaitingToEnter)
	assert.Equal(t, 0.1, cfg.JobsWaitingToEnterProbability)
}

func TestResolveConfig_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		field string
	}{
		{"no job duration", []string{"--failure-probability", "0.1"}, "job duration"},
		{"no failure probability", []string{"--job-duration", "30"}, "failure probability"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var o runOptions
			cmd := newTestRunCmd(t, &o, tt.args...)

			_, err := resolveConfig(cmd, &o)

			var cerr *sim.ConfigError
			require.True(t, errors.As(err, &cerr), "expected *sim.ConfigError, got %v", err)
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestResolveConfig_ExplicitZeroFailureProbabilityIsAccepted(t *testing.T) {
	var o runOptions
	cmd := newTestRunCmd(t, &o, "--job-duration", "30", "--failure-probability", "0")

	cfg, err := resolveConfig(cmd, &o)

	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.FailureProbability)
}

func TestResolveConfig_InvalidValue(t *testing.T) {
	var o runOptions
	cmd := newTestRunCmd(t, &o, "--job-duration", "30", "--failure-probability", "0.1", "--min-queue-size", "4", "--max-queue-size", "2")

	_, err := resolveConfig(cmd, &o)

	var cerr *sim.ConfigError
	require.True(t, errors.As(err, &cerr), "expected *sim.ConfigError, got %v", err)
	assert.Equal(t, "max queue size", cerr.Field)
}

func TestResolveConfig_FileValuesApply(t *testing.T) {
	path := writeConfig(t, `
job_duration_minutes: 45
failure_probability: 0.05
min_queue_size: 2
max_queue_size: 4
sim_duration_hours: 100
mode: stability
stability_duration_hours: 500
jobs_waiting_to_enter: 1
jobs_waiting_to_enter_probability: 0.3
failure_model: per-round
graduation: head-only
seed: 9
workers: 2
trace: rounds
`)
	var o runOptions
	cmd := newTestRunCmd(t, &o, "--config", path)

	cfg, err := resolveConfig(cmd, &o)

	require.NoError(t, err)
	assert.Equal(t, sim.Config{
		JobDuration:                   45 * time.Minute,
		FailureProbability:            0.05,
		MinQueueSize:                  2,
		MaxQueueSize:                  4,
		SimDuration:                   100 * time.Hour,
		Mode:                          sim.ModeStability,
		StabilityDuration:             500 * time.Hour,
		JobsWaitingToEnter:            1,
		JobsWaitingToEnterProbability: 0.3,
		FailureModel:                  sim.FailurePerRound,
		Graduation:                    sim.GraduateHeadOnly,
		Seed:                          9,
		Workers:                       2,
		Trace:                         trace.TraceLevelRounds,
	}, cfg)
}

func TestResolveConfig_ChangedFlagsOverrideFile(t *testing.T) {
	// GIVEN a file setting the queue range and seed
	path := writeConfig(t, "job_duration_minutes: 30\nfailure_probability: 0.1\nmax_queue_size: 8\nseed: 3\n")

	// WHEN only --seed is passed explicitly
	var o runOptions
	cmd := newTestRunCmd(t, &o, "--config", path, "--seed", "11")
	cfg, err := resolveConfig(cmd, &o)

	// THEN the flag wins and the unset max-queue-size default does not mask the file
	require.NoError(t, err)
	assert.Equal(t, int64(11), cfg.Seed)
	assert.Equal(t, 8, cfg.MaxQueueSize)
}

func TestLoadFileConfig_UnknownFieldRejected(t *testing.T) {
	path := writeConfig(t, "job_duration_minutes: 30\nfailure_probabilty: 0.1\n")

	_, err := LoadFileConfig(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failure_probabilty")
}

func TestLoadFileConfig_EmptyFile(t *testing.T) {
	fc, err := LoadFileConfig(writeConfig(t, ""))

	require.NoError(t, err)
	assert.Nil(t, fc.JobDurationMinutes)
}

func TestLoadFileConfig_MissingFile(t *testing.T) {
	_, err := LoadFileConfig(filepath.Join(t.TempDir(), "absent.yaml"))

	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileConfig_FractionalDurations(t *testing.T) {
	fc, err := LoadFileConfig(writeConfig(t, "job_duration_minutes: 7.5\nsim_duration_hours: 0.5\n"))
	require.NoError(t, err)

	cfg := sim.DefaultConfig()
	require.NoError(t, fc.Apply(&cfg))

	assert.Equal(t, 7*time.Minute+30*time.Second, cfg.JobDuration)
	assert.Equal(t, 30*time.Minute, cfg.SimDuration)
}

func TestResolveConfig_DurationOverflowRejected(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		yaml  string
		field string
	}{
		{"sim duration flag", []string{"--sim-duration", "3000000"}, "", "simulation duration"},
		{"stability duration flag", []string{"--stability-duration", "9000000000"}, "", "stability duration"},
		{"job duration flag", []string{"--job-duration", "200000000"}, "", "job duration"},
		{"sim duration file", nil, "sim_duration_hours: 1.0e7\n", "simulation duration"},
		{"negative overflow in file", nil, "stability_duration_hours: -1.0e12\n", "stability duration"},
		{"job duration file", nil, "job_duration_minutes: 1.0e15\n", "job duration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--job-duration", "30", "--failure-probability", "0.1"}, tt.args...)
			if tt.yaml != "" {
				args = append(args, "--config", writeConfig(t, tt.yaml))
			}
			var o runOptions
			cmd := newTestRunCmd(t, &o, args...)

			_, err := resolveConfig(cmd, &o)

			var cerr *sim.ConfigError
			require.True(t, errors.As(err, &cerr), "expected *sim.ConfigError, got %v", err)
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestResolveConfig_LargestRepresentableDurationAccepted(t *testing.T) {
	var o runOptions
	cmd := newTestRunCmd(t, &o, "--job-duration", "30", "--failure-probability", "0.1", "--sim-duration", "2562047")

	cfg, err := resolveConfig(cmd, &o)

	require.NoError(t, err)
	assert.Equal(t, 2562047*time.Hour, cfg.SimDuration)
}

func TestResolveConfig_UnknownOutputRejected(t *testing.T) {
	var o runOptions
	cmd := newTestRunCmd(t, &o, "--job-duration", "30", "--failure-probability", "0.1", "--output", "csv")

	_, err := resolveConfig(cmd, &o)

	var cerr *sim.ConfigError
	require.True(t, errors.As(err, &cerr), "expected *sim.ConfigError, got %v", err)
	assert.Equal(t, "output", cerr.Field)
}
