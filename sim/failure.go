package sim

import "fmt"

// FailureModel selects how a round's failure point is drawn.
type FailureModel string

const (
	// FailurePerJob scans resident jobs from the head, each failing
	// independently with the configured probability; the first failing
	// position is the failure point.
	FailurePerJob FailureModel = "per-job"

	// FailurePerRound draws once per round whether a failure occurs, then
	// picks the failing position uniformly among occupied slots.
	FailurePerRound FailureModel = "per-round"
)

// ValidFailureModels is the set of recognized failure model names.
// Empty selects FailurePerJob.
var ValidFailureModels = map[FailureModel]bool{"": true, FailurePerJob: true, FailurePerRound: true}

// FailureOutcome describes what the injector did in one round.
type FailureOutcome struct {
	Failed    bool
	Position  int  // 1-indexed position of the failed job before removal
	Job       *Job // the lost job; nil when Failed is false
	Restarted int  // number of downstream jobs whose builds were discarded
}

// FailureInjector decides each round whether, and where, a build fails and
// applies the removal and cascading restart to the queue.
type FailureInjector struct {
	model       FailureModel
	probability float64
	rng         RandomSource
}

// NewFailureInjector creates an injector. An empty model selects FailurePerJob.
// Panics on unrecognized models.
func NewFailureInjector(model FailureModel, probability float64, rng RandomSource) *FailureInjector {
	if !ValidFailureModels[model] {
		panic(fmt.Sprintf("unknown failure model %q", model))
	}
	if model == "" {
		model = FailurePerJob
	}
	return &FailureInjector{model: model, probability: probability, rng: rng}
}

// Inject runs one round of failure injection against q.
// An empty queue is a no-op.
func (f *FailureInjector) Inject(q *QueueState) (FailureOutcome, error) {
	occupied := q.Len()
	if occupied == 0 {
		return FailureOutcome{}, nil
	}
	position := f.pickPosition(occupied)
	if position == 0 {
		return FailureOutcome{}, nil
	}

	job, err := q.RemoveAt(position)
	if err != nil {
		return FailureOutcome{}, err
	}
	restarted, err := q.RestartAfter(position-1, job.ID)
	if err != nil {
		return FailureOutcome{}, err
	}
	return FailureOutcome{Failed: true, Position: position, Job: job, Restarted: restarted}, nil
}

// pickPosition returns the 1-indexed failing position, or 0 for no failure.
func (f *FailureInjector) pickPosition(occupied int) int {
	if f.probability <= 0 {
		return 0
	}
	switch f.model {
	case FailurePerRound:
		if f.rng.Float64() < f.probability {
			return f.rng.Intn(occupied) + 1
		}
		return 0
	default:
		for pos := 1; pos <= occupied; pos++ {
			if f.rng.Float64() < f.probability {
				return pos
			}
		}
		return 0
	}
}
