package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/pprof"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/webgridhq/webgrid/pkg/journal"
	"github.com/webgridhq/webgrid/pkg/metrics"
	"github.com/webgridhq/webgrid/pkg/sessionqueue"
)

const sessionQueuePrefix = "/se/grid/newsessionqueue"

// Server binds the session queue contract over HTTP.
type Server struct {
	queue           *sessionqueue.SessionQueue
	journal         *journal.Journal
	queueMetrics    *metrics.QueueMetrics
	registry        *prometheus.Registry
	logger          *Logger
	port            int
	version         string
	enableProfiling bool
	started         time.Time
	httpServer      *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(queue *sessionqueue.SessionQueue, jnl *journal.Journal, qm *metrics.QueueMetrics, registry *prometheus.Registry, port int, version string, enableProfiling bool, logger *Logger) *Server {
	return &Server{
		queue:           queue,
		journal:         jnl,
		queueMetrics:    qm,
		registry:        registry,
		logger:          logger,
		port:            port,
		version:         version,
		enableProfiling: enableProfiling,
		started:         time.Now(),
	}
}

// Start starts the HTTP server and blocks until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.Handler(),
	}

	s.logger.Info("http server listening", "port", s.port)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.httpServer.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Stop stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Handler builds the route table. Exposed for tests via httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/session", s.handleNewSession)
	mux.HandleFunc(sessionQueuePrefix+"/session/", s.handleSessionByID)
	mux.HandleFunc(sessionQueuePrefix+"/batch", s.handleBatch)
	mux.HandleFunc(sessionQueuePrefix+"/queue", s.handleQueue)

	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/journal/recent", s.handleRecentJournal)

	if s.registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	if s.enableProfiling {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	return mux
}

// handleNewSession handles POST /session: enqueue and wait for the outcome.
func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload NewSessionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid argument", "malformed new session payload")
		return
	}
	if len(payload.Capabilities) == 0 {
		s.writeError(w, http.StatusBadRequest, "invalid argument", "no capabilities requested")
		return
	}

	req := &sessionqueue.SessionRequest{
		EnqueuedAt:          time.Now(),
		Dialects:            payload.Dialects,
		DesiredCapabilities: payload.Capabilities,
		Metadata:            payload.Metadata,
		TraceContext:        payload.TraceContext,
	}
	if payload.RequestID != "" {
		id, err := sessionqueue.ParseRequestID(payload.RequestID)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid argument", "malformed request id")
			return
		}
		req.ID = id
	} else {
		req.ID = sessionqueue.NewRequestID()
	}

	s.logger.LogRequestEnqueued(req.ID.String(), s.queue.Len())

	resp, err := s.queue.AddToQueue(r.Context(), req)
	waited := time.Since(req.EnqueuedAt)
	s.recordOutcome(req, resp, err, waited)

	if err != nil {
		if sessionqueue.IsClientGone(err) {
			// The waiter is gone; nothing useful to write.
			return
		}
		s.writeError(w, http.StatusInternalServerError, "session not created", err.Error())
		return
	}

	if len(resp.DownstreamEncodedResponse) > 0 {
		w.Header().Set("Content-Type", "application/json")
		w.Write(resp.DownstreamEncodedResponse)
		return
	}
	s.writeJSON(w, http.StatusOK, SessionResponse{Value: SessionValue{
		SessionID:    resp.SessionID,
		Capabilities: resp.Capabilities,
		NodeURI:      resp.NodeURI,
	}})
}

// handleSessionByID dispatches /se/grid/newsessionqueue/session/{id}[/retry].
func (s *Server) handleSessionByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, sessionQueuePrefix+"/session/")
	retry := false
	if strings.HasSuffix(rest, "/retry") {
		rest = strings.TrimSuffix(rest, "/retry")
		retry = true
	}
	id, err := sessionqueue.ParseRequestID(rest)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid argument", "malformed request id")
		return
	}

	switch {
	case retry && r.Method == http.MethodPost:
		s.handleRetry(w, r, id)
	case !retry && r.Method == http.MethodPost:
		s.handleComplete(w, r, id)
	case !retry && r.Method == http.MethodDelete:
		s.handleRemove(w, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleRetry hands a declined request back to the front of the queue.
func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request, id sessionqueue.RequestID) {
	var req sessionqueue.SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid argument", "malformed session request")
		return
	}
	if req.ID != id {
		s.writeError(w, http.StatusBadRequest, "invalid argument", "request id does not match path")
		return
	}

	ok := s.queue.RetryAddToQueue(&req)
	if ok {
		s.queueMetrics.ObserveRetry()
	}
	s.writeJSON(w, http.StatusOK, BoolResponse{Value: ok})
}

// handleComplete resolves a claimed request with the distributor's result.
func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request, id sessionqueue.RequestID) {
	var payload CompletePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid argument", "malformed completion payload")
		return
	}

	won := s.queue.Complete(id, toResult(payload))
	s.writeJSON(w, http.StatusOK, BoolResponse{Value: won})
}

// handleRemove drops a queued request without resolving its waiter.
func (s *Server) handleRemove(w http.ResponseWriter, id sessionqueue.RequestID) {
	req, ok := s.queue.Remove(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "not found", "request is not queued")
		return
	}
	s.writeJSON(w, http.StatusOK, RequestResponse{Value: req})
}

// handleBatch handles POST .../batch: a distributor poll.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload BatchPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid argument", "malformed batch payload")
		return
	}

	claimed := s.queue.GetNextAvailable(toStereotypeSlots(payload.Stereotypes))
	s.queueMetrics.ObserveBatch(len(claimed))
	s.logger.LogBatchClaimed(len(claimed), s.queue.Len())
	s.writeJSON(w, http.StatusOK, BatchResponse{Value: claimed})
}

// handleQueue handles GET (contents) and DELETE (clear) on .../queue.
func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, ContentsResponse{Value: s.queue.Contents()})
	case http.MethodDelete:
		n := s.queue.ClearQueue()
		s.logger.Info("queue cleared", "drained", n)
		s.writeJSON(w, http.StatusOK, CountResponse{Value: n})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleHealth handles GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:     "healthy",
		Timestamp:  time.Now().Unix(),
		Version:    s.version,
		QueueDepth: s.queue.Len(),
	})
}

// handleStats handles GET /api/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	persisted, err := s.journal.PersistedCount()
	if err != nil {
		s.logger.LogError("journal count", err)
	}
	s.writeJSON(w, http.StatusOK, StatsResponse{
		QueueDepth:     s.queue.Len(),
		Journal:        s.journal.Stats(),
		PersistedCount: persisted,
		UptimeSeconds:  time.Since(s.started).Seconds(),
	})
}

// handleRecentJournal handles GET /api/journal/recent
func (s *Server) handleRecentJournal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := parseLimit(r, 10)
	if outcome := r.URL.Query().Get("outcome"); outcome != "" {
		records, err := s.journal.ByOutcome(journal.Outcome(outcome), limit)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, "unknown error", err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"records": records, "count": len(records)})
		return
	}

	records := s.journal.Recent(limit)
	s.writeJSON(w, http.StatusOK, map[string]any{"records": records, "count": len(records)})
}

// recordOutcome journals and counts one resolved AddToQueue call.
func (s *Server) recordOutcome(req *sessionqueue.SessionRequest, resp *sessionqueue.CreateSessionResponse, err error, waited time.Duration) {
	rec := journal.Record{
		RequestID:    req.ID.String(),
		EnqueuedAt:   req.EnqueuedAt,
		ResolvedAt:   time.Now(),
		WaitDuration: waited,
	}
	if len(req.DesiredCapabilities) > 0 {
		rec.BrowserName = req.DesiredCapabilities[0].BrowserName()
	}

	switch {
	case err == nil:
		rec.Outcome = journal.OutcomeCompleted
		rec.SessionID = resp.SessionID
	case sessionqueue.IsTimeout(err):
		rec.Outcome = journal.OutcomeTimedOut
		rec.ErrorMessage = err.Error()
	case sessionqueue.IsClientGone(err):
		rec.Outcome = journal.OutcomeClientGone
		rec.ErrorMessage = err.Error()
	case sessionqueue.IsQueueCleared(err):
		rec.Outcome = journal.OutcomeCleared
		rec.ErrorMessage = err.Error()
	default:
		rec.Outcome = journal.OutcomeRejected
		rec.ErrorMessage = err.Error()
	}

	if jerr := s.journal.Append(rec); jerr != nil {
		s.logger.LogError("journal append", jerr, "request_id", rec.RequestID)
	}
	s.queueMetrics.ObserveOutcome(string(rec.Outcome), waited)
	s.logger.LogRequestResolved(rec.RequestID, string(rec.Outcome), waited.Milliseconds())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.LogError("encode response", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, kind, message string) {
	s.writeJSON(w, status, ErrorResponse{Value: ErrorValue{Error: kind, Message: message}})
}

// parseLimit reads a positive ?limit= query value with a fallback.
func parseLimit(r *http.Request, fallback int) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
