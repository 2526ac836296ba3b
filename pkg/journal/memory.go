package journal

import (
	"sync"
	"time"
)

// recentStore provides thread-safe bounded storage of resolved requests
type recentStore struct {
	mu          sync.RWMutex
	records     []Record
	maxSize     int
	maxAge      time.Duration
	lastCleanup time.Time
}

func newRecentStore(maxSize int, maxAge time.Duration) *recentStore {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &recentStore{
		records:     make([]Record, 0, maxSize),
		maxSize:     maxSize,
		maxAge:      maxAge,
		lastCleanup: time.Now(),
	}
}

func (s *recentStore) add(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, rec)
	s.cleanupIfNeeded()

	// Hard cap regardless of the periodic cleanup
	if len(s.records) > s.maxSize {
		excess := len(s.records) - s.maxSize
		s.records = s.records[excess:]
	}
}

// recent returns the last N records, oldest first
func (s *recentStore) recent(limit int) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.records) {
		limit = len(s.records)
	}

	start := len(s.records) - limit
	result := make([]Record, limit)
	copy(result, s.records[start:])
	return result
}

func (s *recentStore) stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		TotalRecords:    len(s.records),
		ByOutcome:       make(map[Outcome]int),
		BrowserRequests: make(map[string]int),
	}
	if len(s.records) == 0 {
		return stats
	}

	var totalWait time.Duration
	for _, rec := range s.records {
		stats.ByOutcome[rec.Outcome]++
		if rec.BrowserName != "" {
			stats.BrowserRequests[rec.BrowserName]++
		}
		totalWait += rec.WaitDuration
	}
	stats.AverageWait = totalWait / time.Duration(len(s.records))

	oldest := s.records[0].ResolvedAt
	newest := s.records[len(s.records)-1].ResolvedAt
	stats.OldestRecord = &oldest
	stats.NewestRecord = &newest
	return stats
}

func (s *recentStore) dropOlderThan(cutoff time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []Record
	for _, rec := range s.records {
		if rec.ResolvedAt.After(cutoff) {
			kept = append(kept, rec)
		}
	}
	s.records = kept
}

// cleanupIfNeeded removes aged records; throttled to avoid scanning on
// every append. Caller holds the write lock.
func (s *recentStore) cleanupIfNeeded() {
	if s.maxAge <= 0 {
		return
	}

	now := time.Now()
	if now.Sub(s.lastCleanup) < 5*time.Minute {
		return
	}
	s.lastCleanup = now

	cutoff := now.Add(-s.maxAge)
	var kept []Record
	for _, rec := range s.records {
		if rec.ResolvedAt.After(cutoff) {
			kept = append(kept, rec)
		}
	}
	s.records = kept
}
