package engine

import "fmt"

// ScoringError indicates that a scoring stage could not produce a ranked
// result, e.g. no strategy resolved a single signal weight. It is fatal for
// the turn; the engine never falls back to a default selection.
type ScoringError struct {
	Stage  string
	Reason string
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("scoring failed in %s: %s", e.Stage, e.Reason)
}

// SignalDetectionError wraps a failure from an individual signal detector.
// Detector failures propagate and abort the turn; a silently missing signal
// would skew every downstream score without surfacing an error.
type SignalDetectionError struct {
	Detector string
	Err      error
}

func (e *SignalDetectionError) Error() string {
	return fmt.Sprintf("signal detector %q failed: %v", e.Detector, e.Err)
}

func (e *SignalDetectionError) Unwrap() error {
	return e.Err
}

// ContractViolation indicates that a required upstream pipeline output was
// absent when a later stage ran, or that a caller passed an id the tracker
// has never seen. The message names the missing stage or input.
type ContractViolation struct {
	Stage   string
	Missing string
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("pipeline contract violation in %s: missing %s", e.Stage, e.Missing)
}
