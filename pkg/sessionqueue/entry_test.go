package sessionqueue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingEntry_FirstWriterWins(t *testing.T) {
	// Given a fresh entry
	entry := newPendingEntry(time.Now().Add(time.Minute))

	// When two results race in sequence
	first := entry.setResult(Result{Response: &CreateSessionResponse{SessionID: "one"}})
	second := entry.setResult(Result{Response: &CreateSessionResponse{SessionID: "two"}})

	// Then only the first sticks
	assert.True(t, first)
	assert.False(t, second)
	assert.Equal(t, "one", entry.getResult().Response.SessionID)

	// And the done channel is closed exactly once
	select {
	case <-entry.done:
	default:
		t.Fatal("done channel not closed after completion")
	}
}

func TestPendingEntry_ConcurrentSetResult(t *testing.T) {
	entry := newPendingEntry(time.Now().Add(time.Minute))

	const racers = 32
	var wg sync.WaitGroup
	wins := make(chan int, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if entry.setResult(Result{Response: &CreateSessionResponse{SessionID: "s"}}) {
				wins <- i
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	var count int
	for range wins {
		count++
	}
	assert.Equal(t, 1, count)
}

func TestPendingEntry_CancelBlocksCompletion(t *testing.T) {
	// Given an entry whose waiter has given up
	entry := newPendingEntry(time.Now().Add(time.Minute))
	entry.cancel()

	// When someone tries to complete it
	won := entry.setResult(Result{Response: &CreateSessionResponse{SessionID: "late"}})

	// Then the completion is refused
	assert.False(t, won)
	assert.True(t, entry.isCanceled())
}

func TestPendingEntry_CancelAfterCompletionIsNoOp(t *testing.T) {
	entry := newPendingEntry(time.Now().Add(time.Minute))
	require.True(t, entry.setResult(Result{Response: &CreateSessionResponse{SessionID: "s"}}))

	entry.cancel()

	assert.False(t, entry.isCanceled())
	assert.Equal(t, "s", entry.getResult().Response.SessionID)
}

func TestPendingEntry_TimedOut(t *testing.T) {
	deadline := time.Unix(1000, 0)
	entry := newPendingEntry(deadline)

	assert.False(t, entry.timedOut(deadline))
	assert.False(t, entry.timedOut(deadline.Add(-time.Second)))
	assert.True(t, entry.timedOut(deadline.Add(time.Second)))
}
