// Package sweep runs one independent trial per queue capacity in a
// configured range, in parallel, and collects the results in ascending
// capacity order.
package sweep

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mergeq-sim/mergeq-sim/sim"
	"github.com/mergeq-sim/mergeq-sim/sim/trace"
)

// Outcome is one trial's result plus its optional round trace.
type Outcome struct {
	Result *sim.TrialResult
	Trace  *trace.TrialTrace
}

// Run validates cfg and runs a trial for every capacity in its range on at
// most cfg.EffectiveWorkers() goroutines. Each trial's random streams are
// derived from cfg.Seed and its capacity, so the results do not depend on
// worker count or completion order.
//
// The first failing trial cancels the trials that have not started yet and
// its error is returned. m may be nil.
func Run(ctx context.Context, cfg sim.Config, m *Metrics) ([]Outcome, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	capacities := cfg.Capacities()
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed))
	streams := make([]sim.TrialStreams, len(capacities))
	for i, capacity := range capacities {
		streams[i] = rng.ForTrial(capacity)
	}

	outcomes := make([]Outcome, len(capacities))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.EffectiveWorkers())

	logrus.Debugf("sweeping capacities %d..%d on %d workers", cfg.MinQueueSize, cfg.MaxQueueSize, cfg.EffectiveWorkers())
	for i, capacity := range capacities {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			trial := sim.NewTrial(cfg, capacity, streams[i])
			result, err := trial.Run()
			if err != nil {
				return fmt.Errorf("trial at capacity %d: %w", capacity, err)
			}
			outcomes[i] = Outcome{Result: result, Trace: trial.Trace}
			if m != nil {
				m.Observe(result)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// Results extracts the trial results from outcomes, preserving order.
func Results(outcomes []Outcome) []*sim.TrialResult {
	results := make([]*sim.TrialResult, len(outcomes))
	for i, o := range outcomes {
		results[i] = o.Result
	}
	return results
}
