package sessionqueue

import (
	"errors"
	"fmt"

	"github.com/webgridhq/webgrid/pkg/capability"
)

// CreateSessionResponse is the successful outcome of a new-session request,
// supplied by the distributor once a node has created the session.
type CreateSessionResponse struct {
	SessionID    string                  `json:"sessionId"`
	Capabilities capability.Capabilities `json:"capabilities"`
	NodeURI      string                  `json:"nodeUri,omitempty"`

	// DownstreamEncodedResponse is the already-encoded wire payload to hand
	// back to the waiting client byte-for-byte.
	DownstreamEncodedResponse []byte `json:"-"`
}

// SessionNotCreatedError is the structured failure carried back to a waiter
// when a session could not be created, whether the distributor said so or
// the queue forced the outcome (timeout, cancellation, clear).
type SessionNotCreatedError struct {
	Message string
	Cause   error
}

func (e *SessionNotCreatedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("session not created: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("session not created: %s", e.Message)
}

func (e *SessionNotCreatedError) Unwrap() error {
	return e.Cause
}

// IsSessionNotCreated reports whether err is a session-not-created failure.
func IsSessionNotCreated(err error) bool {
	var snc *SessionNotCreatedError
	return errors.As(err, &snc)
}

// IsTimeout reports whether err is a queue-forced timeout failure.
func IsTimeout(err error) bool {
	var snc *SessionNotCreatedError
	if !errors.As(err, &snc) {
		return false
	}
	return snc.Message == msgInjectTimedOut || snc.Message == msgWaitTimedOut
}

// IsClientGone reports whether err marks a waiter that disconnected.
func IsClientGone(err error) bool {
	var snc *SessionNotCreatedError
	return errors.As(err, &snc) && snc.Message == msgClientGone
}

// IsQueueCleared reports whether err came from an operator clearing the queue.
func IsQueueCleared(err error) bool {
	var snc *SessionNotCreatedError
	return errors.As(err, &snc) && snc.Message == msgQueueCleared
}

// Result is the resolved outcome of a pending request: exactly one of
// Response or Err is set.
type Result struct {
	Response *CreateSessionResponse
	Err      *SessionNotCreatedError
}

// Failure messages for the three internally-forced outcomes. The canceled
// message never reaches an HTTP client; the original caller is gone by
// definition. It only tells in-flight dispatch work to stop.
const (
	msgInjectTimedOut = "timed out creating session"
	msgWaitTimedOut   = "new session request timed out"
	msgClientGone     = "client has gone away"
	msgQueueCleared   = "request queue was cleared"
)

func timeoutResult() Result {
	return Result{Err: &SessionNotCreatedError{Message: msgInjectTimedOut}}
}

func canceledResult(cause error) Result {
	return Result{Err: &SessionNotCreatedError{Message: msgClientGone, Cause: cause}}
}

func clearedResult() Result {
	return Result{Err: &SessionNotCreatedError{Message: msgQueueCleared}}
}
