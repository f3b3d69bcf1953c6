package trace

// TraceLevel controls the verbosity of round tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelRounds captures one record per simulated round.
	TraceLevelRounds TraceLevel = "rounds"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:   true,
	TraceLevelRounds: true,
	"":               true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TrialTrace collects the round records of one capacity trial.
type TrialTrace struct {
	Capacity int
	Rounds   []RoundRecord
}

// NewTrialTrace creates a TrialTrace ready for recording.
func NewTrialTrace(capacity int) *TrialTrace {
	return &TrialTrace{
		Capacity: capacity,
		Rounds:   make([]RoundRecord, 0),
	}
}

// RecordRound appends a round record.
func (tt *TrialTrace) RecordRound(record RoundRecord) {
	tt.Rounds = append(tt.Rounds, record)
}
