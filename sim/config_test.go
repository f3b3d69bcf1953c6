package sim

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.JobDuration = 30 * time.Minute
	cfg.FailureProbability = 0.1
	return cfg
}

func TestDefaultConfig_RequiresJobDuration(t *testing.T) {
	err := DefaultConfig().Validate()

	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr), "expected *ConfigError, got %v", err)
	assert.Equal(t, "job duration", cerr.Field)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string // empty when valid
	}{
		{"valid", func(*Config) {}, ""},
		{"p=0 allowed", func(c *Config) { c.FailureProbability = 0 }, ""},
		{"p=1 allowed", func(c *Config) { c.FailureProbability = 1 }, ""},
		{"zero job duration", func(c *Config) { c.JobDuration = 0 }, "job duration"},
		{"negative probability", func(c *Config) { c.FailureProbability = -0.1 }, "failure probability"},
		{"probability above one", func(c *Config) { c.FailureProbability = 1.5 }, "failure probability"},
		{"zero min queue", func(c *Config) { c.MinQueueSize = 0 }, "min queue size"},
		{"max below min", func(c *Config) { c.MinQueueSize = 5; c.MaxQueueSize = 4 }, "max queue size"},
		{"zero sim duration", func(c *Config) { c.SimDuration = 0 }, "simulation duration"},
		{"negative stability duration", func(c *Config) { c.StabilityDuration = -time.Hour }, "stability duration"},
		{"negative waiting jobs", func(c *Config) { c.JobsWaitingToEnter = -1 }, "jobs waiting to enter"},
		{"waiting probability above one", func(c *Config) { c.JobsWaitingToEnterProbability = 2 }, "jobs waiting to enter probability"},
		{"unknown mode", func(c *Config) { c.Mode = "forever" }, "mode"},
		{"unknown failure model", func(c *Config) { c.FailureModel = "per-commit" }, "failure model"},
		{"unknown graduation", func(c *Config) { c.Graduation = "batch" }, "graduation"},
		{"negative workers", func(c *Config) { c.Workers = -2 }, "workers"},
		{"unknown trace level", func(c *Config) { c.Trace = "events" }, "trace level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()

			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var cerr *ConfigError
			require.True(t, errors.As(err, &cerr), "expected *ConfigError, got %v", err)
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestConfig_Capacities(t *testing.T) {
	cfg := validConfig()
	cfg.MinQueueSize = 3
	cfg.MaxQueueSize = 6
	assert.Equal(t, []int{3, 4, 5, 6}, cfg.Capacities())

	cfg.MinQueueSize = 4
	cfg.MaxQueueSize = 4
	assert.Equal(t, []int{4}, cfg.Capacities())
}

func TestConfig_TargetDuration(t *testing.T) {
	cfg := validConfig()
	cfg.SimDuration = 100 * time.Hour
	assert.Equal(t, 100*time.Hour, cfg.TargetDuration())

	cfg.Mode = ModeStability
	assert.Equal(t, DefaultStabilityDuration, cfg.TargetDuration())

	cfg.StabilityDuration = 0
	assert.Equal(t, DefaultStabilityDuration, cfg.TargetDuration())

	cfg.StabilityDuration = 500 * time.Hour
	assert.Equal(t, 500*time.Hour, cfg.TargetDuration())
}

func TestConfig_EffectiveWorkers(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, runtime.GOMAXPROCS(0), cfg.EffectiveWorkers())

	cfg.Workers = 3
	assert.Equal(t, 3, cfg.EffectiveWorkers())
}
