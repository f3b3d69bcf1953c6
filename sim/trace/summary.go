package trace

// TraceSummary aggregates statistics from a TrialTrace.
type TraceSummary struct {
	Rounds        int
	FailureRounds int
	Graduations   int
	Losses        int
	Restarts      int
	Admitted      int
	Withheld      int
	MinOccupancy  int
	MaxOccupancy  int
	// FailurePositions counts failures by 1-indexed queue position.
	FailurePositions map[int]int
}

// Summarize computes aggregate statistics from a TrialTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(tt *TrialTrace) *TraceSummary {
	summary := &TraceSummary{
		FailurePositions: make(map[int]int),
	}
	if tt == nil || len(tt.Rounds) == 0 {
		return summary
	}

	summary.Rounds = len(tt.Rounds)
	summary.MinOccupancy = tt.Rounds[0].Occupancy
	for _, r := range tt.Rounds {
		if r.Failed {
			summary.FailureRounds++
			summary.Losses++
			summary.FailurePositions[r.FailedPosition]++
		}
		summary.Restarts += r.Restarted
		summary.Graduations += r.Graduated
		summary.Admitted += r.Admitted
		summary.Withheld += r.Withheld
		summary.MinOccupancy = min(summary.MinOccupancy, r.Occupancy)
		summary.MaxOccupancy = max(summary.MaxOccupancy, r.Occupancy)
	}

	return summary
}
