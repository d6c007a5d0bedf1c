package domain

import "fmt"

// ConfigurationError is an invalid or missing configuration value.
// It fails the run before it starts; nothing is recoverable about it.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

// NewConfigurationError builds a ConfigurationError for the given field.
func NewConfigurationError(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// MatchingError marks a malformed request or offer. The offending intent
// is dropped and counted; the run continues.
type MatchingError struct {
	AgentID int
	Reason  string
}

func (e *MatchingError) Error() string {
	return fmt.Sprintf("matching: agent %d: %s", e.AgentID, e.Reason)
}

// InternalConsistencyError is a violated LoanBook invariant. It indicates a
// logic defect, never a data problem, and aborts the run immediately.
// Dump carries the full book state at the moment of the violation.
type InternalConsistencyError struct {
	Invariant string
	Detail    string
	Dump      string
}

func (e *InternalConsistencyError) Error() string {
	return fmt.Sprintf("internal consistency: %s: %s", e.Invariant, e.Detail)
}

// StateError is an invalid Scheduler transition, e.g. Tick after Completed.
// Fatal to the call; the caller recovers via an explicit Reset.
type StateError struct {
	Op   string
	From string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("scheduler: %s not valid in state %s", e.Op, e.From)
}
