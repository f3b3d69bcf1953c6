package sim

import "fmt"

// ConfigError reports a configuration value outside its valid domain.
// It is produced by Config.Validate and never from inside a running trial.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvariantError reports inconsistent queue bookkeeping inside a trial.
// The trial that produced it is aborted; there is no recovery.
type InvariantError struct {
	Capacity int // queue capacity of the aborted trial
	Round    int // round in which the violation was detected (0 = setup)
	Reason   string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("simulation invariant violated (capacity=%d, round=%d): %s", e.Capacity, e.Round, e.Reason)
}

func invariantf(capacity int, format string, args ...any) *InvariantError {
	return &InvariantError{Capacity: capacity, Reason: fmt.Sprintf(format, args...)}
}
