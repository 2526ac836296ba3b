package sessionqueue

import (
	"sync"
	"time"
)

// pendingEntry is the mutable state the queue keeps per request while it
// owns it: the fixed deadline, the one-shot completion signal, and the
// eventual result. Its fields are guarded by the entry's own mutex, never by
// the store lock, so completing one request does not contend with structural
// queue mutations for others.
type pendingEntry struct {
	// deadline is enqueuedAt + requestTimeout, fixed at injection. A retried
	// request keeps its original deadline.
	deadline time.Time

	// done is closed exactly once, when a result is set.
	done chan struct{}

	mu        sync.Mutex
	result    Result
	completed bool
	canceled  bool
}

func newPendingEntry(deadline time.Time) *pendingEntry {
	return &pendingEntry{
		deadline: deadline,
		done:     make(chan struct{}),
		result:   Result{Err: &SessionNotCreatedError{Message: "session not created"}},
	}
}

// setResult records the outcome, first writer wins. Returns true only when
// this call transitioned the entry from incomplete to complete; later calls,
// and calls on a canceled entry, are no-ops returning false.
func (e *pendingEntry) setResult(r Result) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.completed || e.canceled {
		return false
	}
	e.result = r
	e.completed = true
	close(e.done)
	return true
}

// cancel marks the entry as abandoned by its waiter. Any later observer must
// treat the request as dead rather than dispatch it.
func (e *pendingEntry) cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.completed {
		e.canceled = true
	}
}

func (e *pendingEntry) isCanceled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canceled
}

func (e *pendingEntry) getResult() Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result
}

func (e *pendingEntry) timedOut(now time.Time) bool {
	return e.deadline.Before(now)
}
