// sim/simulator.go
package sim

import (
	"errors"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mergeq-sim/mergeq-sim/sim/trace"
)

// residenceTolerance is the relative float64 rounding allowed between the
// occupancy integral and the summed residence times.
const residenceTolerance = 1e-9

// TrialState is the round scheduler's state.
type TrialState string

const (
	StateRunning TrialState = "running"
	StateStopped TrialState = "stopped"
)

// Trial is the round scheduler for one queue capacity. It owns its queue,
// statistics and random streams, so independent trials share nothing but the
// read-only Config.
type Trial struct {
	Capacity    int
	Clock       time.Duration
	Horizon     time.Duration // stop once Clock >= Horizon
	JobDuration time.Duration
	Round       int
	State       TrialState

	Queue      *QueueState
	Failures   *FailureInjector
	Admission  *AdmissionController
	Graduation GraduationPolicy
	Stats      *StatsAggregator
	Trace      *trace.TrialTrace // nil unless round tracing is enabled
}

// NewTrial builds a trial at capacity from a validated config and the
// trial's own random streams. The queue starts saturated at clock 0.
func NewTrial(cfg Config, capacity int, streams TrialStreams) *Trial {
	graduation := cfg.Graduation
	if graduation == "" {
		graduation = GraduateSpeculative
	}
	t := &Trial{
		Capacity:    capacity,
		Horizon:     cfg.TargetDuration(),
		JobDuration: cfg.JobDuration,
		State:       StateRunning,
		Queue:       NewQueueState(capacity),
		Failures:    NewFailureInjector(cfg.FailureModel, cfg.FailureProbability, streams.Failure),
		Admission: NewAdmissionController(
			NewAdmissionPolicy(cfg.JobsWaitingToEnter, cfg.JobsWaitingToEnterProbability, streams.Admission)),
		Graduation: graduation,
		Stats:      NewStatsAggregator(),
	}
	if cfg.Trace == trace.TraceLevelRounds {
		t.Trace = trace.NewTrialTrace(capacity)
	}
	return t
}

// Run fills the queue, advances rounds until the stop condition fires, and
// returns the trial's result. Any invariant violation aborts the trial.
func (t *Trial) Run() (*TrialResult, error) {
	logrus.Debugf("[capacity %d] trial starting, horizon=%s job=%s", t.Capacity, t.Horizon, t.JobDuration)

	if t.Round == 0 {
		n, err := t.Admission.Saturate(t.Queue, t.Clock)
		if err != nil {
			return nil, t.abort(err)
		}
		t.Stats.Admitted += n
		t.Stats.SampleOccupancy(t.Clock, t.Queue.Len())
	}

	for t.State == StateRunning {
		if err := t.Step(); err != nil {
			return nil, err
		}
	}

	if err := t.checkResidence(); err != nil {
		return nil, t.abort(err)
	}

	result := t.Stats.Result(t.Capacity, t.Round, t.Clock)
	logrus.Debugf("[capacity %d] trial stopped after %d rounds: merged=%d lost=%d throughput=%.2f/h",
		t.Capacity, t.Round, result.Merged, result.Lost, result.Throughput)
	return result, nil
}

// Step advances the trial by one round:
//  1. advance the clock by one job duration;
//  2. inject at most one failure, removing it and restarting its dependents;
//  3. graduate jobs per the graduation policy;
//  4. refill freed slots through the admission controller;
//  5. sample occupancy;
//  6. stop once the clock reaches the horizon.
//
// The final round always runs to completion, so elapsed time may exceed the
// horizon by up to one job duration.
func (t *Trial) Step() error {
	if t.State != StateRunning {
		return nil
	}
	t.Round++
	t.Queue.BeginRound()
	t.Clock += t.JobDuration
	record := trace.RoundRecord{Round: t.Round, Clock: t.Clock}

	failure, err := t.Failures.Inject(t.Queue)
	if err != nil {
		return t.abort(err)
	}
	if failure.Failed {
		t.Stats.RecordLoss(t.Clock - failure.Job.AdmissionTime)
		t.Stats.Restarts += failure.Restarted
		record.Failed = true
		record.FailedPosition = failure.Position
		record.FailedJob = int64(failure.Job.ID)
		record.Restarted = failure.Restarted
	}

	graduated, err := t.graduate(failure.Failed)
	if err != nil {
		return t.abort(err)
	}
	record.Graduated = graduated

	admission, err := t.Admission.Fill(t.Queue, t.Clock)
	if err != nil {
		return t.abort(err)
	}
	t.Stats.Admitted += admission.Admitted
	t.Stats.Withheld += admission.Withheld
	record.Admitted = admission.Admitted
	record.Withheld = admission.Withheld

	occupancy := t.Queue.Len()
	if err := t.checkConservation(occupancy); err != nil {
		return t.abort(err)
	}
	t.Stats.SampleOccupancy(t.Clock, occupancy)
	record.Occupancy = occupancy

	if t.Trace != nil {
		t.Trace.RecordRound(record)
	}
	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		logrus.Tracef("[capacity %d][round %d] t=%s failed=%v@%d graduated=%d admitted=%d withheld=%d queue=%s",
			t.Capacity, t.Round, t.Clock, failure.Failed, failure.Position, graduated,
			admission.Admitted, admission.Withheld, t.Queue)
	}

	if t.Clock >= t.Horizon {
		t.State = StateStopped
	}
	return nil
}

// graduate merges jobs from the head and returns how many merged.
func (t *Trial) graduate(failed bool) (int, error) {
	switch t.Graduation {
	case GraduateHeadOnly:
		if failed || t.Queue.Len() == 0 {
			return 0, nil
		}
		if err := t.graduateHead(); err != nil {
			return 0, err
		}
		return 1, nil
	default:
		n := 0
		for head := t.Queue.Head(); head != nil && !head.Restarted; head = t.Queue.Head() {
			if err := t.graduateHead(); err != nil {
				return n, err
			}
			n++
		}
		return n, nil
	}
}

func (t *Trial) graduateHead() error {
	head := t.Queue.Head()
	if head.Restarted {
		return invariantf(t.Capacity, "%s graduating before its rebuild completed", head)
	}
	if _, err := t.Queue.RemoveAt(1); err != nil {
		return err
	}
	t.Stats.RecordGraduation(t.Clock - head.AdmissionTime)
	return nil
}

// checkConservation verifies that every admitted job is either resident,
// merged or lost, and that occupancy stays within [0, capacity].
func (t *Trial) checkConservation(occupancy int) error {
	if occupancy < 0 || occupancy > t.Capacity {
		return invariantf(t.Capacity, "occupancy %d outside [0, %d]", occupancy, t.Capacity)
	}
	if accounted := t.Stats.Merged + t.Stats.Lost + occupancy; accounted != t.Stats.Admitted {
		return invariantf(t.Capacity, "admitted %d jobs but merged=%d lost=%d resident=%d",
			t.Stats.Admitted, t.Stats.Merged, t.Stats.Lost, occupancy)
	}
	return nil
}

// checkResidence verifies that the occupancy integral equals the residence
// time of every departed job plus the age of every resident job.
func (t *Trial) checkResidence() error {
	residence := t.Stats.SojournMinutes
	for _, job := range t.Queue.Items() {
		residence += (t.Clock - job.AdmissionTime).Minutes()
	}
	integral := t.Stats.OccupancyIntegral(t.Clock)
	if math.Abs(integral-residence) > residenceTolerance*math.Max(math.Abs(integral), 1) {
		return invariantf(t.Capacity, "occupancy integral %.3f job-minutes != total residence %.3f", integral, residence)
	}
	return nil
}

// abort stops the trial and stamps the current round on invariant errors.
func (t *Trial) abort(err error) error {
	t.State = StateStopped
	var inv *InvariantError
	if errors.As(err, &inv) {
		inv.Capacity = t.Capacity
		inv.Round = t.Round
	}
	logrus.Errorf("[capacity %d] trial aborted: %v", t.Capacity, err)
	return err
}
