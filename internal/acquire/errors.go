package acquire

import (
	"errors"
	"fmt"
)

// ErrorKind is the normalized acquisition failure taxonomy.
type ErrorKind string

const (
	// KindInput means the identifier was malformed. Never retried.
	KindInput ErrorKind = "input"

	// KindChallengeTimeout means a challenge was not solved or verified inside
	// its bounded window.
	KindChallengeTimeout ErrorKind = "challenge_timeout"

	// KindChallengeRejected means the target reported the solved challenge as
	// wrong. The pipeline restarts from navigation.
	KindChallengeRejected ErrorKind = "challenge_rejected"

	// KindSolverFailure means the external solving service errored.
	KindSolverFailure ErrorKind = "solver_failure"

	// KindArtifactNotFound means every capture channel was exhausted without a
	// validated document.
	KindArtifactNotFound ErrorKind = "artifact_not_found"

	// KindTargetRejected is an explicit negative result from the target, e.g.
	// the identifier is unknown there.
	KindTargetRejected ErrorKind = "target_rejected"

	// KindRemoteUnavailable means the target or solver was unreachable.
	KindRemoteUnavailable ErrorKind = "remote_unavailable"

	// KindAcquisitionFailed is the terminal kind after the attempt budget is
	// spent on retryable failures.
	KindAcquisitionFailed ErrorKind = "acquisition_failed"
)

// Error wraps acquisition failures with a kind and a retry hint. Retryable
// errors restart the pipeline from navigation until the attempt budget runs
// out; the rest surface immediately.
type Error struct {
	Kind      ErrorKind
	Retryable bool
	Message   string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an acquisition error. Retryability follows the kind.
func NewError(kind ErrorKind, msg string, underlying error) *Error {
	retryable := kind == KindChallengeTimeout ||
		kind == KindChallengeRejected ||
		kind == KindSolverFailure
	return &Error{Kind: kind, Retryable: retryable, Message: msg, Err: underlying}
}

// IsRetryable reports whether an error is worth another pipeline attempt.
func IsRetryable(err error) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Retryable
	}
	return false
}

// KindOf extracts the failure kind, defaulting to KindAcquisitionFailed for
// unclassified errors.
func KindOf(err error) ErrorKind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindAcquisitionFailed
}
