package sim

import "time"

// AdmissionPolicy decides how many of a round's free slots may be filled.
// Withheld slots stay empty for the round and are offered again next round.
type AdmissionPolicy interface {
	Admit(free int) (admitted, withheld int)
}

// AlwaysAdmit fills every free slot immediately.
type AlwaysAdmit struct{}

func (a *AlwaysAdmit) Admit(free int) (int, int) {
	return free, 0
}

// WaitingToEnter models external queue-entry backpressure: with the given
// probability, up to count free slots are held empty for the round.
type WaitingToEnter struct {
	count       int
	probability float64
	rng         RandomSource
}

// NewWaitingToEnter creates a WaitingToEnter policy.
func NewWaitingToEnter(count int, probability float64, rng RandomSource) *WaitingToEnter {
	return &WaitingToEnter{count: count, probability: probability, rng: rng}
}

// Admit draws once per call; a call is made only for rounds that have free slots.
func (w *WaitingToEnter) Admit(free int) (int, int) {
	if w.rng.Float64() < w.probability {
		withheld := min(w.count, free)
		return free - withheld, withheld
	}
	return free, 0
}

// NewAdmissionPolicy returns AlwaysAdmit when no slots can ever be withheld,
// and a WaitingToEnter policy otherwise.
func NewAdmissionPolicy(count int, probability float64, rng RandomSource) AdmissionPolicy {
	if count <= 0 || probability <= 0 {
		return &AlwaysAdmit{}
	}
	return NewWaitingToEnter(count, probability, rng)
}

// AdmissionOutcome describes one round of admission.
type AdmissionOutcome struct {
	Admitted int
	Withheld int
}

// AdmissionController refills freed slots at the end of each round through
// its AdmissionPolicy. It is the only component that adds jobs to the queue
// after the initial fill.
type AdmissionController struct {
	policy AdmissionPolicy
}

// NewAdmissionController wraps policy.
func NewAdmissionController(policy AdmissionPolicy) *AdmissionController {
	return &AdmissionController{policy: policy}
}

// Fill admits new jobs at now into q's free slots as the policy allows.
// Each admitted job depends on every commit ahead of it.
func (a *AdmissionController) Fill(q *QueueState, now time.Duration) (AdmissionOutcome, error) {
	free := q.Free()
	if free <= 0 {
		return AdmissionOutcome{}, nil
	}
	admitted, withheld := a.policy.Admit(free)
	if admitted < 0 || withheld < 0 || admitted+withheld != free {
		return AdmissionOutcome{}, invariantf(q.Capacity(), "admission policy split %d free slots into admitted=%d withheld=%d", free, admitted, withheld)
	}
	for i := 0; i < admitted; i++ {
		if err := q.Admit(q.NewJob(now)); err != nil {
			return AdmissionOutcome{}, err
		}
	}
	return AdmissionOutcome{Admitted: admitted, Withheld: withheld}, nil
}

// Saturate fills every free slot at now, bypassing the policy. Used to start
// a trial with a full queue.
func (a *AdmissionController) Saturate(q *QueueState, now time.Duration) (int, error) {
	n := q.Free()
	for i := 0; i < n; i++ {
		if err := q.Admit(q.NewJob(now)); err != nil {
			return i, err
		}
	}
	return n, nil
}
