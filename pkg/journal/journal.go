package journal

import (
	"fmt"
	"time"
)

// Outcome classifies how a session request left the queue.
type Outcome string

const (
	// OutcomeCompleted means a node created the session.
	OutcomeCompleted Outcome = "completed"
	// OutcomeRejected means every matching node declined the request.
	OutcomeRejected Outcome = "rejected"
	// OutcomeTimedOut means the request aged out before a node took it.
	OutcomeTimedOut Outcome = "timed_out"
	// OutcomeClientGone means the caller disconnected while waiting.
	OutcomeClientGone Outcome = "client_gone"
	// OutcomeCleared means an operator drained the queue.
	OutcomeCleared Outcome = "cleared"
)

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeCompleted, OutcomeRejected, OutcomeTimedOut, OutcomeClientGone, OutcomeCleared:
		return true
	}
	return false
}

// Record is one resolved session request.
type Record struct {
	RequestID    string        `json:"request_id"`
	Outcome      Outcome       `json:"outcome"`
	EnqueuedAt   time.Time     `json:"enqueued_at"`
	ResolvedAt   time.Time     `json:"resolved_at"`
	WaitDuration time.Duration `json:"wait_duration"`
	BrowserName  string        `json:"browser_name,omitempty"`
	SessionID    string        `json:"session_id,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// Stats summarizes the journal contents.
type Stats struct {
	TotalRecords    int                `json:"total_records"`
	ByOutcome       map[Outcome]int    `json:"by_outcome"`
	AverageWait     time.Duration      `json:"average_wait"`
	BrowserRequests map[string]int     `json:"browser_requests"`
	OldestRecord    *time.Time         `json:"oldest_record,omitempty"`
	NewestRecord    *time.Time         `json:"newest_record,omitempty"`
}

// Journal keeps a bounded in-memory history of resolved requests and,
// when configured with a path, mirrors every record to SQLite.
type Journal struct {
	recent *recentStore
	db     *database
}

// Options configures a Journal.
type Options struct {
	// RecentSize bounds the in-memory history. Zero disables it.
	RecentSize int
	// MaxAge bounds how long records are kept. Zero keeps them forever.
	MaxAge time.Duration
	// Path enables SQLite persistence when non-empty.
	Path string
}

// New opens a journal. The SQLite side is optional; with an empty path
// the journal is memory-only.
func New(opts Options) (*Journal, error) {
	j := &Journal{
		recent: newRecentStore(opts.RecentSize, opts.MaxAge),
	}
	if opts.Path != "" {
		db, err := openDatabase(opts.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open journal database: %w", err)
		}
		j.db = db
	}
	return j, nil
}

// Append records one resolved request. A database write failure is
// returned but the in-memory record is kept regardless.
func (j *Journal) Append(rec Record) error {
	if !rec.Outcome.Valid() {
		return fmt.Errorf("unknown journal outcome %q", rec.Outcome)
	}
	j.recent.add(rec)
	if j.db != nil {
		if err := j.db.insert(rec); err != nil {
			return fmt.Errorf("failed to persist journal record: %w", err)
		}
	}
	return nil
}

// Recent returns the most recent records, newest last.
func (j *Journal) Recent(limit int) []Record {
	return j.recent.recent(limit)
}

// Stats aggregates the in-memory history.
func (j *Journal) Stats() Stats {
	return j.recent.stats()
}

// ByOutcome returns up to limit records with the given outcome, newest
// first. It prefers the persistent store when one is open, since that
// may hold history the memory ring has already dropped.
func (j *Journal) ByOutcome(outcome Outcome, limit int) ([]Record, error) {
	if j.db != nil {
		return j.db.byOutcome(outcome, limit)
	}
	var out []Record
	all := j.recent.recent(0)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		if all[i].Outcome == outcome {
			out = append(out, all[i])
		}
	}
	return out, nil
}

// PersistedCount reports how many records the database holds. Returns
// zero when persistence is disabled.
func (j *Journal) PersistedCount() (int, error) {
	if j.db == nil {
		return 0, nil
	}
	return j.db.count()
}

// CleanupExpired drops records older than maxAge from both stores.
func (j *Journal) CleanupExpired(maxAge time.Duration) error {
	j.recent.dropOlderThan(time.Now().Add(-maxAge))
	if j.db != nil {
		return j.db.cleanup(maxAge)
	}
	return nil
}

// Close releases the database handle if one is open.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.close()
	}
	return nil
}
