package sessionqueue

import (
	"fmt"
	"sync"
	"time"
)

// queueStore is the ordered sequence of not-yet-dispatched requests plus the
// id -> pendingEntry index. One reader/writer lock guards both structures;
// they are only ever mutated together, so they cannot diverge under
// concurrent access.
type queueStore struct {
	mu      sync.RWMutex
	order   []*SessionRequest
	entries map[RequestID]*pendingEntry
}

func newQueueStore() *queueStore {
	return &queueStore{
		entries: make(map[RequestID]*pendingEntry),
	}
}

// inject creates the pending entry for a request and appends the request to
// the tail, both under one write-lock acquisition. Injecting an id that is
// already tracked is refused; ids are never present twice.
func (s *queueStore) inject(req *SessionRequest, deadline time.Time) (*pendingEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[req.ID]; exists {
		return nil, fmt.Errorf("request %s is already queued", req.ID)
	}

	entry := newPendingEntry(deadline)
	s.entries[req.ID] = entry
	s.order = append(s.order, req)
	return entry, nil
}

// removeAll drops the request from both the sequence and the index, and
// returns the entry that was tracked, if any.
func (s *queueStore) removeAll(id RequestID) (*pendingEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
	}
	s.removeFromOrderLocked(id)
	return entry, ok
}

// removeFromOrder drops the request from the sequence only, leaving its
// entry (and therefore any waiter) untouched.
func (s *queueStore) removeFromOrder(id RequestID) (*SessionRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeFromOrderLocked(id)
}

func (s *queueStore) removeFromOrderLocked(id RequestID) (*SessionRequest, bool) {
	for i, req := range s.order {
		if req.ID == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return req, true
		}
	}
	return nil, false
}

type retryAction int

const (
	retryUnknown retryAction = iota
	retryTimedOut
	retryCanceled
	retryAlreadyQueued
	retryReinserted
)

// retryScan classifies a retry attempt and, when the request is healthy and
// absent from the sequence, reinserts it at the head so aged requests are
// served before fresh arrivals. The force-fail for the timed-out and
// canceled cases happens in the caller, outside this lock.
func (s *queueStore) retryScan(req *SessionRequest, now time.Time) retryAction {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[req.ID]
	if !ok {
		return retryUnknown
	}
	if entry.timedOut(now) {
		return retryTimedOut
	}
	if entry.isCanceled() {
		return retryCanceled
	}
	for _, queued := range s.order {
		if queued.ID == req.ID {
			return retryAlreadyQueued
		}
	}
	s.order = append([]*SessionRequest{req}, s.order...)
	return retryReinserted
}

// claimBatch walks the sequence head to tail, claiming requests the match
// predicate accepts, up to batch. Claimed requests leave the sequence but
// keep their entries: ownership transfers to the caller, who must complete
// or retry them. Requests whose waiter has canceled are returned separately
// so the caller can force-fail them outside the lock.
func (s *queueStore) claimBatch(match func(*SessionRequest) bool, batch int) (claimed []*SessionRequest, dead []RequestID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	remaining := s.order[:0:0]
	for _, req := range s.order {
		if len(claimed)+len(dead) >= batch || !match(req) {
			remaining = append(remaining, req)
			continue
		}
		if entry := s.entries[req.ID]; entry != nil && entry.isCanceled() {
			// Leave it in place; the force-fail path removes it.
			dead = append(dead, req.ID)
			remaining = append(remaining, req)
			continue
		}
		claimed = append(claimed, req)
	}
	s.order = remaining
	return claimed, dead
}

// expired returns the ids that are still in the sequence and past their
// deadline. Read lock only: acting on them happens outside the lock so
// completion never runs under the store's write lock.
func (s *queueStore) expired(now time.Time) []RequestID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []RequestID
	for _, req := range s.order {
		if entry, ok := s.entries[req.ID]; ok && entry.timedOut(now) {
			ids = append(ids, req.ID)
		}
	}
	return ids
}

// clear empties the sequence, force-completes every indexed entry with the
// queue-cleared failure, and empties the index. Returns how many requests
// were in the sequence.
func (s *queueStore) clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.order)
	s.order = nil
	for _, entry := range s.entries {
		entry.setResult(clearedResult())
	}
	s.entries = make(map[RequestID]*pendingEntry)
	return n
}

func (s *queueStore) contents() []SessionRequestCapability {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]SessionRequestCapability, 0, len(s.order))
	for _, req := range s.order {
		out = append(out, SessionRequestCapability{
			ID:                  req.ID,
			DesiredCapabilities: req.DesiredCapabilities,
		})
	}
	return out
}

func (s *queueStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func (s *queueStore) empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order) == 0 && len(s.entries) == 0
}
