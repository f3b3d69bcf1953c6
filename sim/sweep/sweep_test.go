package sweep

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mergeq-sim/mergeq-sim/sim"
	"github.com/mergeq-sim/mergeq-sim/sim/trace"
)

func testConfig() sim.Config {
	cfg := sim.DefaultConfig()
	cfg.JobDuration = 30 * time.Minute
	cfg.FailureProbability = 0.1
	cfg.SimDuration = 2000 * time.Hour
	return cfg
}

func TestRun_ResultsInAscendingCapacityOrder(t *testing.T) {
	cfg := testConfig()
	cfg.MinQueueSize = 2
	cfg.MaxQueueSize = 7

	outcomes, err := Run(context.Background(), cfg, nil)

	require.NoError(t, err)
	require.Len(t, outcomes, 6)
	for i, o := range outcomes {
		assert.Equal(t, 2+i, o.Result.Capacity)
		assert.Nil(t, o.Trace, "tracing is off by default")
	}
}

func TestRun_WorkerCountDoesNotChangeResults(t *testing.T) {
	// GIVEN the same seed run serially and on four workers
	cfg := testConfig()
	cfg.Workers = 1
	serial, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)

	cfg.Workers = 4
	parallel, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)

	// THEN every trial produces identical results
	assert.Equal(t, Results(serial), Results(parallel))
}

func TestRun_ThroughputGrowsWithCapacity(t *testing.T) {
	outcomes, err := Run(context.Background(), testConfig(), nil)
	require.NoError(t, err)

	results := Results(outcomes)
	for i := 1; i < len(results); i++ {
		assert.Greater(t, results[i].Throughput, results[i-1].Throughput,
			"capacity %d vs %d", results[i].Capacity, results[i-1].Capacity)
	}
}

func TestRun_InvalidConfig_ReturnsConfigError(t *testing.T) {
	cfg := testConfig()
	cfg.FailureProbability = 2

	outcomes, err := Run(context.Background(), cfg, nil)

	assert.Nil(t, outcomes)
	var cerr *sim.ConfigError
	assert.True(t, errors.As(err, &cerr), "expected *sim.ConfigError, got %v", err)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, testConfig(), nil)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_TraceAttachedWhenEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.MaxQueueSize = 2
	cfg.SimDuration = 10 * time.Hour
	cfg.Trace = trace.TraceLevelRounds

	outcomes, err := Run(context.Background(), cfg, nil)

	require.NoError(t, err)
	for _, o := range outcomes {
		require.NotNil(t, o.Trace)
		assert.Equal(t, o.Result.Capacity, o.Trace.Capacity)
		assert.Len(t, o.Trace.Rounds, o.Result.Rounds)
	}
}

func TestMetrics_ObserveAndWriteTextfile(t *testing.T) {
	// GIVEN a sweep over capacities 1..3 with metrics enabled
	cfg := testConfig()
	cfg.MaxQueueSize = 3
	m := NewMetrics()

	outcomes, err := Run(context.Background(), cfg, m)
	require.NoError(t, err)

	// THEN every trial is reported under its capacity label
	assert.Equal(t, 3.0, testutil.ToFloat64(m.trials))
	for _, r := range Results(outcomes) {
		assert.Equal(t, float64(r.Merged), testutil.ToFloat64(m.merged.WithLabelValues(strconv.Itoa(r.Capacity))))
		assert.Equal(t, float64(r.Lost), testutil.ToFloat64(m.lost.WithLabelValues(strconv.Itoa(r.Capacity))))
		assert.InDelta(t, r.Throughput, testutil.ToFloat64(m.throughput.WithLabelValues(strconv.Itoa(r.Capacity))), 1e-9)
	}

	// AND the registry can be written as a textfile
	path := filepath.Join(t.TempDir(), "mergeq.prom")
	require.NoError(t, m.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `mergeq_throughput_per_hour{capacity="2"}`)
	assert.Contains(t, string(data), "mergeq_trials_total 3")
}
