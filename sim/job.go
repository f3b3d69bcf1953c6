// Defines the Job struct that models one change request resident in the merge queue.
// Tracks first admission time, the speculative commits it builds on, and restarts.

package sim

import (
	"fmt"
	"time"
)

// CommitID identifies the commit a job contributes to the speculative chain.
// Commit IDs are the job sequence numbers, so they are unique within a trial.
type CommitID int64

// Job models a single change request's lifecycle in the queue:
// created on admission, rebuilt on restart, destroyed on graduation or loss.
type Job struct {
	ID CommitID // monotonic sequence number within the trial

	// AdmissionTime is the clock value when the job first joined the queue.
	// Restarts never reset it, so wait time includes time lost to rebuilds.
	AdmissionTime time.Duration

	// Dependencies lists, in queue order, the commits of every job that was
	// ahead of this one when it was admitted or last restarted.
	Dependencies []CommitID

	RestartCount int

	// Restarted is set when the job's build was discarded during the current
	// round. A restarted job cannot graduate until it rebuilds next round.
	Restarted bool
}

// DependsOn reports whether the job's speculative build includes commit c.
func (j *Job) DependsOn(c CommitID) bool {
	for _, d := range j.Dependencies {
		if d == c {
			return true
		}
	}
	return false
}

func (j *Job) String() string {
	return fmt.Sprintf("job#%d(admitted=%s, deps=%d, restarts=%d)", j.ID, j.AdmissionTime, len(j.Dependencies), j.RestartCount)
}
