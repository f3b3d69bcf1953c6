// Package trace provides per-round decision recording for merge queue trials.
// It stores plain data types and does not import sim/.
package trace

import "time"

// RoundRecord captures the decisions and resulting state of one round.
type RoundRecord struct {
	Round int
	Clock time.Duration // clock at round end

	Failed         bool
	FailedPosition int   // 1-indexed; 0 when no failure
	FailedJob      int64 // commit ID of the lost job; 0 when no failure
	Restarted      int   // downstream jobs whose builds were discarded

	Graduated int // jobs merged this round
	Admitted  int // jobs admitted into freed slots
	Withheld  int // freed slots held empty by admission delay

	Occupancy int // resident jobs sampled at round end
}
