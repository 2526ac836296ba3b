package sessionqueue

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/webgridhq/webgrid/pkg/capability"
)

// RequestID uniquely identifies one new-session request for the lifetime of
// its trip through the queue. IDs are assigned by the caller before
// enqueueing and are never reused.
type RequestID string

// NewRequestID returns a fresh random request id.
func NewRequestID() RequestID {
	return RequestID(uuid.NewString())
}

// ParseRequestID validates an id received over the wire.
func ParseRequestID(s string) (RequestID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid request id %q: %w", s, err)
	}
	return RequestID(id.String()), nil
}

func (id RequestID) String() string {
	return string(id)
}

// SessionRequest is one pending ask for a new browser session. It is treated
// as an immutable value once enqueued: the queue moves it around but never
// modifies it.
type SessionRequest struct {
	ID RequestID `json:"requestId"`

	// EnqueuedAt is when the caller first asked for the session. The
	// request's deadline is computed from this, not from any later retry.
	EnqueuedAt time.Time `json:"enqueued"`

	// Dialects lists the wire-protocol dialects the caller speaks.
	Dialects []string `json:"dialects,omitempty"`

	// DesiredCapabilities holds the caller's alternatives in preference
	// order; the first alternative a slot satisfies wins.
	DesiredCapabilities []capability.Capabilities `json:"desiredCapabilities"`

	// Metadata is carried through unchanged for the caller's own use.
	Metadata map[string]any `json:"metadata,omitempty"`

	// TraceContext is an opaque correlation context attached at enqueue
	// time and threaded through to completion unchanged.
	TraceContext map[string]string `json:"traceContext,omitempty"`
}

// SessionRequestCapability is the read-only queue snapshot entry: which
// request is waiting and what it asked for.
type SessionRequestCapability struct {
	ID                  RequestID                 `json:"requestId"`
	DesiredCapabilities []capability.Capabilities `json:"desiredCapabilities"`
}

// StereotypeSlots reports how many free slots a distributor currently has
// for one advertised stereotype. GetNextAvailable decrements Free in its own
// copy as it matches, so one batch never double-claims a slot.
type StereotypeSlots struct {
	Stereotype capability.Capabilities `json:"stereotype"`
	Free       int                     `json:"free"`
}
