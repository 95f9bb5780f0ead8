package stream

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a delivery failure at the collaborator boundary.
// The kind, not the error text, decides recovery behavior.
type ErrorKind string

const (
	// KindStreamUnavailable marks a recoverable condition: the backend
	// cannot serve the live query right now (schema not migrated yet,
	// database locked, broker channel down). Triggers the fallback
	// poller exactly once.
	KindStreamUnavailable ErrorKind = "stream_unavailable"

	// KindAuthRequired means there is no active user. Subscriptions are
	// torn down and view state cleared; never retried.
	KindAuthRequired ErrorKind = "auth_required"

	// KindPermissionDenied means the query targets data the active user
	// may not read. Surfaced, not retried.
	KindPermissionDenied ErrorKind = "permission_denied"

	// KindNetworkFailure covers everything else: transient transport or
	// store failures. Surfaced, retried only by an explicit refresh.
	KindNetworkFailure ErrorKind = "network_failure"
)

// Error is a classified collaborator failure.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with a kind. A nil err is allowed; the kind alone
// is the message.
func NewError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf extracts the kind from any error produced at the collaborator
// boundary. Unclassified errors count as network failures, the only
// safe default: surfaced but never auto-retried.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindNetworkFailure
}

// Recoverable reports whether the fallback poller should run for err.
func Recoverable(err error) bool {
	return KindOf(err) == KindStreamUnavailable
}
