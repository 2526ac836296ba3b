package daemon

import (
	"github.com/webgridhq/webgrid/pkg/capability"
	"github.com/webgridhq/webgrid/pkg/journal"
	"github.com/webgridhq/webgrid/pkg/sessionqueue"
)

// Wire types for the queue HTTP API. Responses use a W3C-style
// {"value": ...} envelope so WebDriver clients can consume them.

// NewSessionPayload is the body of POST /session.
type NewSessionPayload struct {
	RequestID    string                    `json:"requestId,omitempty"`
	Dialects     []string                  `json:"dialects,omitempty"`
	Capabilities []capability.Capabilities `json:"capabilities"`
	Metadata     map[string]any            `json:"metadata,omitempty"`
	TraceContext map[string]string         `json:"traceContext,omitempty"`
}

// SessionValue is the success payload returned to a waiting client.
type SessionValue struct {
	SessionID    string                  `json:"sessionId"`
	Capabilities capability.Capabilities `json:"capabilities"`
	NodeURI      string                  `json:"nodeUri,omitempty"`
}

// SessionResponse envelopes a created session.
type SessionResponse struct {
	Value SessionValue `json:"value"`
}

// ErrorValue is the failure payload inside the envelope.
type ErrorValue struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ErrorResponse envelopes a failure.
type ErrorResponse struct {
	Value ErrorValue `json:"value"`
}

// CompletePayload is the body of POST .../session/{id}. Exactly one of
// Response or Error should be set; an empty body counts as an error.
type CompletePayload struct {
	Response *SessionValue `json:"response,omitempty"`
	Error    *ErrorValue   `json:"error,omitempty"`
}

// BatchPayload is the body of POST .../batch.
type BatchPayload struct {
	Stereotypes []StereotypeSlotsDTO `json:"stereotypes"`
}

// StereotypeSlotsDTO mirrors sessionqueue.StereotypeSlots on the wire.
type StereotypeSlotsDTO struct {
	Stereotype capability.Capabilities `json:"stereotype"`
	Free       int                     `json:"free"`
}

// BatchResponse carries the requests a distributor poll claimed.
type BatchResponse struct {
	Value []*sessionqueue.SessionRequest `json:"value"`
}

// BoolResponse envelopes operations that report won/lost.
type BoolResponse struct {
	Value bool `json:"value"`
}

// CountResponse envelopes operations that report a count.
type CountResponse struct {
	Value int `json:"value"`
}

// RequestResponse envelopes a removed request.
type RequestResponse struct {
	Value *sessionqueue.SessionRequest `json:"value"`
}

// ContentsResponse envelopes the queue snapshot.
type ContentsResponse struct {
	Value []sessionqueue.SessionRequestCapability `json:"value"`
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status     string `json:"status"`
	Timestamp  int64  `json:"timestamp"`
	Version    string `json:"version"`
	QueueDepth int    `json:"queue_depth"`
}

// StatsResponse is the body of GET /api/stats.
type StatsResponse struct {
	QueueDepth     int           `json:"queue_depth"`
	Journal        journal.Stats `json:"journal"`
	PersistedCount int           `json:"persisted_count"`
	UptimeSeconds  float64       `json:"uptime_seconds"`
}

// toStereotypeSlots converts wire stereotypes into queue slot counts.
func toStereotypeSlots(dtos []StereotypeSlotsDTO) []sessionqueue.StereotypeSlots {
	slots := make([]sessionqueue.StereotypeSlots, 0, len(dtos))
	for _, dto := range dtos {
		slots = append(slots, sessionqueue.StereotypeSlots{
			Stereotype: dto.Stereotype,
			Free:       dto.Free,
		})
	}
	return slots
}

// toResult converts a completion payload into a queue result.
func toResult(p CompletePayload) sessionqueue.Result {
	if p.Response != nil {
		return sessionqueue.Result{Response: &sessionqueue.CreateSessionResponse{
			SessionID:    p.Response.SessionID,
			Capabilities: p.Response.Capabilities,
			NodeURI:      p.Response.NodeURI,
		}}
	}
	msg := "session not created"
	if p.Error != nil && p.Error.Message != "" {
		msg = p.Error.Message
	}
	return sessionqueue.Result{Err: &sessionqueue.SessionNotCreatedError{Message: msg}}
}
