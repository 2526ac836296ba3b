package sessionqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/webgridhq/webgrid/pkg/capability"
)

// pollInterval is the fixed sleep GetNextAvailable uses while waiting for
// the queue to become non-empty.
const pollInterval = 10 * time.Millisecond

// Options configures a SessionQueue.
type Options struct {
	// RequestTimeout is each request's total deadline budget, measured from
	// its original enqueue time.
	RequestTimeout time.Duration

	// RequestTimeoutCheckInterval is how often the background reaper scans
	// for expired requests.
	RequestTimeoutCheckInterval time.Duration

	// MaximumResponseDelay bounds how long GetNextAvailable polls before
	// returning an empty batch.
	MaximumResponseDelay time.Duration

	// BatchSize caps how many requests one GetNextAvailable call returns.
	BatchSize int

	// Clock defaults to the system clock.
	Clock Clock
}

func (o *Options) validate() error {
	if o.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %v", o.RequestTimeout)
	}
	if o.RequestTimeoutCheckInterval <= 0 {
		return fmt.Errorf("request timeout check interval must be positive, got %v", o.RequestTimeoutCheckInterval)
	}
	if o.MaximumResponseDelay <= 0 {
		return fmt.Errorf("maximum response delay must be positive, got %v", o.MaximumResponseDelay)
	}
	if o.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %v", o.BatchSize)
	}
	return nil
}

// SessionQueue holds new-session requests until a distributor claims and
// completes them, times them out, or the queue is cleared.
//
// The lifecycle of one request:
//
//  1. The caller enqueues with AddToQueue and blocks until the request
//     resolves, one way or another.
//  2. A distributor claims compatible requests via GetNextAvailable and must
//     then either Complete each one or hand it back with RetryAddToQueue.
//  3. A background reaper force-fails requests whose deadline passes while
//     they wait.
//
// All paths that force an outcome (timeout, cancellation, clear) go through
// the same first-writer-wins completion gate as distributor completions, so
// every waiter receives exactly one result.
type SessionQueue struct {
	matcher        capability.SlotMatcher
	requestTimeout time.Duration
	maxDelay       time.Duration
	batchSize      int
	clock          Clock

	store *queueStore

	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New builds a queue and starts its timeout reaper. Callers own the queue's
// lifecycle and must Close it to release the reaper.
func New(matcher capability.SlotMatcher, opts Options) (*SessionQueue, error) {
	if matcher == nil {
		return nil, errors.New("slot matcher is required")
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}

	q := &SessionQueue{
		matcher:        matcher,
		requestTimeout: opts.RequestTimeout,
		maxDelay:       opts.MaximumResponseDelay,
		batchSize:      opts.BatchSize,
		clock:          opts.Clock,
		store:          newQueueStore(),
		stop:           make(chan struct{}),
	}

	q.wg.Add(1)
	go q.reapLoop(opts.RequestTimeoutCheckInterval)

	return q, nil
}

// AddToQueue injects the request and blocks until it resolves: a distributor
// completes it, its deadline passes, or ctx is canceled. Exactly one outcome
// is returned per call, never later than the request's remaining deadline
// budget.
//
// The request stays visible to GetNextAvailable and Contents for the whole
// wait; it is removed from the store on the way out regardless of outcome.
func (q *SessionQueue) AddToQueue(ctx context.Context, req *SessionRequest) (*CreateSessionResponse, error) {
	if req == nil || req.ID == "" {
		return nil, &SessionNotCreatedError{Message: "request and request id are required"}
	}

	entry, err := q.store.inject(req, req.EnqueuedAt.Add(q.requestTimeout))
	if err != nil {
		return nil, &SessionNotCreatedError{Message: "could not enqueue request", Cause: err}
	}
	defer q.store.removeAll(req.ID)

	now := q.clock.Now()
	if entry.timedOut(now) {
		// The clock raced an already-expired enqueue; resolve it before
		// anyone tries to dispatch it.
		q.failDueToTimeout(req.ID)
	}

	var res Result
	select {
	case <-entry.done:
		res = entry.getResult()
	case <-q.clock.After(entry.deadline.Sub(now)):
		// The timer can race an earlier resolution, e.g. an enqueue that was
		// already expired; the stored result wins.
		entry.setResult(Result{Err: &SessionNotCreatedError{Message: msgWaitTimedOut}})
		res = entry.getResult()
	case <-ctx.Done():
		// The client will never see the session; make sure in-flight
		// dispatch work finds the entry dead.
		entry.cancel()
		res = canceledResult(ctx.Err())
	}

	if res.Err != nil {
		return nil, res.Err
	}
	return res.Response, nil
}

// RetryAddToQueue puts a previously claimed request back at the head of the
// queue. It returns true whenever the caller must NOT complete the request
// itself: the request was reinserted, was already queued, or the queue
// resolved it here because it had expired or its waiter was gone. False
// means the id is unknown.
func (q *SessionQueue) RetryAddToQueue(req *SessionRequest) bool {
	if req == nil || req.ID == "" {
		return false
	}

	switch q.store.retryScan(req, q.clock.Now()) {
	case retryUnknown:
		return false
	case retryTimedOut:
		q.failDueToTimeout(req.ID)
		return true
	case retryCanceled:
		q.failDueToCanceled(req.ID)
		return true
	default:
		return true
	}
}

// Remove takes the request out of the sequence without touching its
// completion state. Removing an unknown id is not an error.
func (q *SessionQueue) Remove(id RequestID) (*SessionRequest, bool) {
	return q.store.removeFromOrder(id)
}

// GetNextAvailable returns up to batchSize queued requests that the given
// free slots can host, removing them from the queue and transferring
// ownership to the caller. When the queue is empty it polls until a request
// arrives or MaximumResponseDelay elapses, so distributors can long-poll
// without hammering the queue.
//
// Matching is greedy and deterministic: oldest request first, first declared
// capability alternative first, first listed stereotype first, decrementing
// that stereotype's free count so one batch never over-claims a slot.
func (q *SessionQueue) GetNextAvailable(stereotypes []StereotypeSlots) []*SessionRequest {
	started := q.clock.Now()
	for q.store.len() == 0 {
		if q.clock.Now().Sub(started) >= q.maxDelay {
			break
		}
		select {
		case <-q.stop:
			return nil
		case <-q.clock.After(pollInterval):
		}
	}

	free := make([]int, len(stereotypes))
	for i, st := range stereotypes {
		free[i] = st.Free
	}
	match := func(req *SessionRequest) bool {
		for _, caps := range req.DesiredCapabilities {
			for i, st := range stereotypes {
				if free[i] > 0 && q.matcher.Matches(st.Stereotype, caps) {
					free[i]--
					return true
				}
			}
		}
		return false
	}

	claimed, dead := q.store.claimBatch(match, q.batchSize)
	for _, id := range dead {
		q.failDueToCanceled(id)
	}
	return claimed
}

// Complete resolves a request with the distributor's outcome. It returns
// true only when this call won the completion race; false means the id was
// unknown, already completed, or its waiter had canceled.
func (q *SessionQueue) Complete(id RequestID, result Result) bool {
	entry, ok := q.store.removeAll(id)
	if !ok {
		return false
	}
	return entry.setResult(result)
}

// ClearQueue drains the queue, failing every pending request with a
// queue-cleared error, and reports how many requests were queued.
func (q *SessionQueue) ClearQueue() int {
	return q.store.clear()
}

// Contents returns a read-only snapshot of the queued requests in order.
func (q *SessionQueue) Contents() []SessionRequestCapability {
	return q.store.contents()
}

// Len reports how many requests are currently in the sequence.
func (q *SessionQueue) Len() int {
	return q.store.len()
}

// Empty reports whether the queue tracks no requests at all, queued or
// claimed.
func (q *SessionQueue) Empty() bool {
	return q.store.empty()
}

// Close stops the timeout reaper. Pending requests are left to their own
// deadlines; call ClearQueue first to fail them eagerly.
func (q *SessionQueue) Close() {
	q.closeOnce.Do(func() {
		close(q.stop)
	})
	q.wg.Wait()
}

func (q *SessionQueue) reapLoop(interval time.Duration) {
	defer q.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-q.stop:
			return
		case <-ticker.C:
			q.reapExpired()
		}
	}
}

// reapExpired identifies expired requests under the read lock, then fails
// them outside any store lock so completion never runs while the store is
// locked.
func (q *SessionQueue) reapExpired() {
	for _, id := range q.store.expired(q.clock.Now()) {
		q.failDueToTimeout(id)
	}
}

func (q *SessionQueue) failDueToTimeout(id RequestID) {
	q.Complete(id, timeoutResult())
}

func (q *SessionQueue) failDueToCanceled(id RequestID) {
	q.Complete(id, Result{Err: &SessionNotCreatedError{Message: msgClientGone}})
}
