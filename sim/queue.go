// Implements the QueueState, the ordered set of jobs resident in the merge queue
// for one capacity trial. Position 1 is the head, closest to merging.

package sim

import (
	"fmt"
	"strings"
	"time"
)

// QueueState holds the resident jobs of one trial in queue order.
// Positions in the public API are 1-indexed from the head.
type QueueState struct {
	capacity int
	jobs     []*Job
	nextID   CommitID
}

// NewQueueState creates an empty queue with the given capacity.
func NewQueueState(capacity int) *QueueState {
	return &QueueState{
		capacity: capacity,
		jobs:     make([]*Job, 0, capacity),
	}
}

// Capacity returns the configured maximum number of resident jobs.
func (q *QueueState) Capacity() int {
	return q.capacity
}

// Len returns the number of resident jobs.
func (q *QueueState) Len() int {
	return len(q.jobs)
}

// Free returns the number of empty slots.
func (q *QueueState) Free() int {
	return q.capacity - len(q.jobs)
}

// Head returns the job at position 1, or nil if the queue is empty.
func (q *QueueState) Head() *Job {
	if len(q.jobs) == 0 {
		return nil
	}
	return q.jobs[0]
}

// Items returns the queue contents in order.
// The returned slice is the queue's internal storage -- callers MUST NOT
// append to or reslice it.
func (q *QueueState) Items() []*Job {
	return q.jobs
}

// NewJob creates the next job in sequence, admitted at now, whose dependency
// set covers every commit currently resident. The job is not yet admitted.
func (q *QueueState) NewJob(now time.Duration) *Job {
	q.nextID++
	return &Job{
		ID:            q.nextID,
		AdmissionTime: now,
		Dependencies:  q.prefix(len(q.jobs)),
	}
}

// Admit appends job at the tail.
// Fails if the queue is already at capacity.
func (q *QueueState) Admit(job *Job) error {
	if job == nil {
		return invariantf(q.capacity, "admit: job must not be nil")
	}
	if len(q.jobs) >= q.capacity {
		return invariantf(q.capacity, "admit %s: queue already holds %d jobs", job, len(q.jobs))
	}
	q.jobs = append(q.jobs, job)
	return nil
}

// RemoveAt removes and returns the job at position (1-indexed).
// Later jobs shift one position toward the head.
func (q *QueueState) RemoveAt(position int) (*Job, error) {
	if position < 1 || position > len(q.jobs) {
		return nil, invariantf(q.capacity, "remove_at(%d): position not resident (len=%d)", position, len(q.jobs))
	}
	idx := position - 1
	job := q.jobs[idx]
	copy(q.jobs[idx:], q.jobs[idx+1:])
	q.jobs[len(q.jobs)-1] = nil
	q.jobs = q.jobs[:len(q.jobs)-1]
	return job, nil
}

// RestartAfter discards the speculative builds of every job strictly after
// position, following the removal of the failed commit. Each affected job's
// dependency set is rebuilt from the surviving prefix ahead of it, its
// restart count is incremented, and it is marked as not completed for the
// current round. Queue order is unchanged. Returns the number restarted.
//
// position 0 restarts the whole queue; position == Len() restarts nothing.
func (q *QueueState) RestartAfter(position int, failed CommitID) (int, error) {
	if position < 0 || position > len(q.jobs) {
		return 0, invariantf(q.capacity, "restart_after(%d): position not resident (len=%d)", position, len(q.jobs))
	}
	for i := position; i < len(q.jobs); i++ {
		job := q.jobs[i]
		job.Dependencies = q.prefix(i)
		job.RestartCount++
		job.Restarted = true
	}
	for _, job := range q.jobs {
		if job.DependsOn(failed) {
			return 0, invariantf(q.capacity, "%s still depends on failed commit %d", job, failed)
		}
	}
	return len(q.jobs) - position, nil
}

// BeginRound starts a new build round: every resident job, including those
// restarted last round, builds against its current dependency set.
func (q *QueueState) BeginRound() {
	for _, job := range q.jobs {
		job.Restarted = false
	}
}

// prefix returns a copy of the commit IDs of the first n resident jobs.
func (q *QueueState) prefix(n int) []CommitID {
	deps := make([]CommitID, n)
	for i := 0; i < n; i++ {
		deps[i] = q.jobs[i].ID
	}
	return deps
}

func (q *QueueState) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, job := range q.jobs {
		sb.WriteString(fmt.Sprint(job.ID))
		if job.Restarted {
			sb.WriteString("*")
		}
		if i < len(q.jobs)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}
