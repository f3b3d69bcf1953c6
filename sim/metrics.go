// Records per-trial merge and loss events and the occupancy series, and derives
// throughput, loss rate, wait-time statistics and the Little's-Law cross-checks.

package sim

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// OccupancySample is the number of resident jobs from At until the next sample.
type OccupancySample struct {
	At   time.Duration
	Jobs int
}

// StatsAggregator accumulates the raw observations of one trial.
// Only merged jobs contribute wait times; lost jobs count toward the loss
// rate and the departure sojourn total.
type StatsAggregator struct {
	Admitted int // jobs that ever entered the queue, including the initial fill
	Merged   int
	Lost     int
	Restarts int
	Withheld int // slot-rounds held empty by admission delay

	Waits []time.Duration // per-graduation time from first admission to merge

	// SojournMinutes is the summed residence of every departed job in
	// job-minutes. Kept as float64: the total over a long run of a large
	// queue exceeds the int64 nanosecond range of time.Duration.
	SojournMinutes float64

	Occupancy []OccupancySample
}

// NewStatsAggregator creates an empty aggregator.
func NewStatsAggregator() *StatsAggregator {
	return &StatsAggregator{
		Waits:     make([]time.Duration, 0),
		Occupancy: make([]OccupancySample, 0),
	}
}

// RecordGraduation records a merged job's wait.
func (s *StatsAggregator) RecordGraduation(wait time.Duration) {
	s.Merged++
	s.Waits = append(s.Waits, wait)
	s.SojournMinutes += wait.Minutes()
}

// RecordLoss records a job removed as the failure point after residing for sojourn.
func (s *StatsAggregator) RecordLoss(sojourn time.Duration) {
	s.Lost++
	s.SojournMinutes += sojourn.Minutes()
}

// SampleOccupancy records that jobs were resident from at onward.
// Samples must be recorded in non-decreasing time order.
func (s *StatsAggregator) SampleOccupancy(at time.Duration, jobs int) {
	s.Occupancy = append(s.Occupancy, OccupancySample{At: at, Jobs: jobs})
}

// OccupancyIntegral returns the integral of the occupancy step function over
// [0, elapsed] in job-minutes. Equals the total residence time of every job
// while it was resident within the interval.
func (s *StatsAggregator) OccupancyIntegral(elapsed time.Duration) float64 {
	var total float64
	for i, sample := range s.Occupancy {
		if sample.At >= elapsed {
			break
		}
		end := elapsed
		if i+1 < len(s.Occupancy) && s.Occupancy[i+1].At < elapsed {
			end = s.Occupancy[i+1].At
		}
		total += float64(sample.Jobs) * (end - sample.At).Minutes()
	}
	return total
}

// MeanOccupancy returns the time-weighted mean of the occupancy series over [0, elapsed].
func (s *StatsAggregator) MeanOccupancy(elapsed time.Duration) float64 {
	values := make([]float64, 0, len(s.Occupancy))
	weights := make([]float64, 0, len(s.Occupancy))
	for i, sample := range s.Occupancy {
		if sample.At >= elapsed {
			break
		}
		end := elapsed
		if i+1 < len(s.Occupancy) && s.Occupancy[i+1].At < elapsed {
			end = s.Occupancy[i+1].At
		}
		if end <= sample.At {
			continue
		}
		values = append(values, float64(sample.Jobs))
		weights = append(weights, float64(end-sample.At))
	}
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, weights)
}

// Result derives the immutable TrialResult for a trial at capacity that ran
// rounds rounds over elapsed simulated time.
func (s *StatsAggregator) Result(capacity, rounds int, elapsed time.Duration) *TrialResult {
	waits := make([]time.Duration, len(s.Waits))
	copy(waits, s.Waits)
	mins := minutesSorted(waits)

	r := &TrialResult{
		Capacity:      capacity,
		Elapsed:       elapsed,
		ElapsedHours:  elapsed.Hours(),
		Rounds:        rounds,
		Merged:        s.Merged,
		Lost:          s.Lost,
		Restarts:      s.Restarts,
		WithheldSlots: s.Withheld,
		Waits:         waits,
		Throughput:    perHour(s.Merged, elapsed),
		LossRate:      perHour(s.Lost, elapsed),
		MeanWait:      CalculateMean(mins),
		MedianWait:    CalculatePercentile(mins, 50),
		P90Wait:       CalculatePercentile(mins, 90),
		WaitStdDev:    CalculateStdDev(mins),
		MeanOccupancy: s.MeanOccupancy(elapsed),
	}
	if r.Throughput > 0 {
		r.LittleWait = r.MeanOccupancy / r.Throughput * 60
	}
	if departureRate := r.Throughput + r.LossRate; departureRate > 0 {
		r.SojournWait = r.MeanOccupancy / departureRate * 60
	}
	if departed := s.Merged + s.Lost; departed > 0 {
		r.MeanSojourn = s.SojournMinutes / float64(departed)
	}
	return r
}

// TrialResult is the outcome of one capacity trial. Rates are per hour and
// waits are in minutes. Created once at the end of the trial; never mutated.
type TrialResult struct {
	Capacity      int           `yaml:"capacity" json:"capacity"`
	Elapsed       time.Duration `yaml:"-" json:"-"`
	ElapsedHours  float64       `yaml:"elapsed_hours" json:"elapsed_hours"`
	Rounds        int           `yaml:"rounds" json:"rounds"`
	Merged        int           `yaml:"merged" json:"merged"`
	Lost          int           `yaml:"lost" json:"lost"`
	Restarts      int           `yaml:"restarts" json:"restarts"`
	WithheldSlots int           `yaml:"withheld_slots" json:"withheld_slots"`

	Waits []time.Duration `yaml:"-" json:"-"` // in graduation order

	Throughput float64 `yaml:"throughput_per_hour" json:"throughput_per_hour"`
	LossRate   float64 `yaml:"loss_rate_per_hour" json:"loss_rate_per_hour"`
	MeanWait   float64 `yaml:"mean_wait_minutes" json:"mean_wait_minutes"`
	MedianWait float64 `yaml:"median_wait_minutes" json:"median_wait_minutes"`
	P90Wait    float64 `yaml:"p90_wait_minutes" json:"p90_wait_minutes"`
	WaitStdDev float64 `yaml:"wait_stddev_minutes" json:"wait_stddev_minutes"`

	MeanOccupancy float64 `yaml:"mean_occupancy" json:"mean_occupancy"`
	// LittleWait is mean occupancy over throughput. It matches MeanWait only
	// when nothing is lost, since lost jobs also occupy slots.
	LittleWait float64 `yaml:"little_wait_minutes" json:"little_wait_minutes"`
	// SojournWait is mean occupancy over the total departure rate.
	SojournWait float64 `yaml:"sojourn_wait_minutes" json:"sojourn_wait_minutes"`
	// MeanSojourn is the directly measured mean residence of merged and lost jobs.
	MeanSojourn float64 `yaml:"mean_sojourn_minutes" json:"mean_sojourn_minutes"`
}

// LittleDivergence returns the relative difference between the Little's-Law
// sojourn estimate and the directly measured mean sojourn.
func (r *TrialResult) LittleDivergence() float64 {
	if r.SojournWait == 0 && r.MeanSojourn == 0 {
		return 0
	}
	return math.Abs(r.SojournWait-r.MeanSojourn) / math.Max(r.SojournWait, r.MeanSojourn)
}

// CheckLittle returns an error when the Little's-Law estimate and the direct
// measurement diverge by more than tol (relative).
func (r *TrialResult) CheckLittle(tol float64) error {
	if d := r.LittleDivergence(); d > tol {
		return fmt.Errorf("capacity %d: Little's-Law sojourn %.2fm vs measured %.2fm (divergence %.3f > %.3f)",
			r.Capacity, r.SojournWait, r.MeanSojourn, d, tol)
	}
	return nil
}
