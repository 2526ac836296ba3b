package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/webgridhq/webgrid/pkg/sessionqueue"
)

// QueueClient talks to a running daemon over its HTTP API.
type QueueClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewQueueClient creates a client for the daemon at baseURL
// (e.g. "http://localhost:4444").
func NewQueueClient(baseURL string) *QueueClient {
	return &QueueClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NewSessionClient returns a client whose HTTP timeout accommodates the
// blocking enqueue call, which can legitimately wait requestTimeout.
func NewSessionClient(baseURL string, requestTimeout time.Duration) *QueueClient {
	return &QueueClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: requestTimeout + 30*time.Second,
		},
	}
}

func (c *QueueClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to daemon failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errResp); decodeErr == nil && errResp.Value.Message != "" {
			return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, errResp.Value.Message)
		}
		return fmt.Errorf("daemon returned %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// NewSession enqueues a request and blocks until it resolves.
func (c *QueueClient) NewSession(ctx context.Context, payload NewSessionPayload) (*SessionValue, error) {
	var resp SessionResponse
	if err := c.do(ctx, http.MethodPost, "/session", payload, &resp); err != nil {
		return nil, err
	}
	return &resp.Value, nil
}

// GetNextAvailable polls the queue for requests matching the given slots.
func (c *QueueClient) GetNextAvailable(ctx context.Context, stereotypes []StereotypeSlotsDTO) ([]*sessionqueue.SessionRequest, error) {
	var resp BatchResponse
	err := c.do(ctx, http.MethodPost, sessionQueuePrefix+"/batch", BatchPayload{Stereotypes: stereotypes}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Value, nil
}

// Complete resolves a claimed request. Returns whether this call won.
func (c *QueueClient) Complete(ctx context.Context, id sessionqueue.RequestID, payload CompletePayload) (bool, error) {
	var resp BoolResponse
	err := c.do(ctx, http.MethodPost, sessionQueuePrefix+"/session/"+id.String(), payload, &resp)
	if err != nil {
		return false, err
	}
	return resp.Value, nil
}

// Retry hands a declined request back to the front of the queue.
func (c *QueueClient) Retry(ctx context.Context, req *sessionqueue.SessionRequest) (bool, error) {
	var resp BoolResponse
	err := c.do(ctx, http.MethodPost, sessionQueuePrefix+"/session/"+req.ID.String()+"/retry", req, &resp)
	if err != nil {
		return false, err
	}
	return resp.Value, nil
}

// Remove drops a queued request without resolving its waiter.
func (c *QueueClient) Remove(ctx context.Context, id sessionqueue.RequestID) (*sessionqueue.SessionRequest, error) {
	var resp RequestResponse
	err := c.do(ctx, http.MethodDelete, sessionQueuePrefix+"/session/"+id.String(), nil, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Value, nil
}

// Contents fetches the queue snapshot.
func (c *QueueClient) Contents(ctx context.Context) ([]sessionqueue.SessionRequestCapability, error) {
	var resp ContentsResponse
	if err := c.do(ctx, http.MethodGet, sessionQueuePrefix+"/queue", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Value, nil
}

// Clear drains the queue, failing every waiter.
func (c *QueueClient) Clear(ctx context.Context) (int, error) {
	var resp CountResponse
	if err := c.do(ctx, http.MethodDelete, sessionQueuePrefix+"/queue", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Value, nil
}

// Health fetches the daemon health report.
func (c *QueueClient) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stats fetches queue and journal statistics.
func (c *QueueClient) Stats(ctx context.Context) (*StatsResponse, error) {
	var resp StatsResponse
	if err := c.do(ctx, http.MethodGet, "/api/stats", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
