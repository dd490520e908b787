package bridge

import (
	"sync"
	"time"
)

// pendingResult is what a waiting caller eventually receives: the
// matched response, or the transport-level error that doomed the wait.
type pendingResult struct {
	resp *Response
	err  error
}

type pendingEntry struct {
	ch       chan pendingResult
	deadline time.Time
}

// PendingTracker correlates in-flight request ids with their waiting
// callers. Every registered entry is delivered to exactly once, whether
// by a matched response, a timeout sweep, or a bulk failure on
// shutdown. Channels are buffered so delivery never blocks while the
// lock is held.
type PendingTracker struct {
	mu      sync.Mutex
	entries map[uint64]pendingEntry
}

// NewPendingTracker returns an empty tracker.
func NewPendingTracker() *PendingTracker {
	return &PendingTracker{entries: make(map[uint64]pendingEntry)}
}

// Register records an in-flight request and returns the channel its
// reply will arrive on. Register must be called before the request
// bytes are written so a fast worker cannot reply to an unknown id.
func (t *PendingTracker) Register(id uint64, timeout time.Duration) <-chan pendingResult {
	ch := make(chan pendingResult, 1)
	t.mu.Lock()
	t.entries[id] = pendingEntry{ch: ch, deadline: time.Now().Add(timeout)}
	t.mu.Unlock()
	return ch
}

// Resolve delivers a response to the caller waiting on its id. It
// reports false when no entry matches, which covers late replies after
// a timeout as well as ids the bridge never issued.
func (t *PendingTracker) Resolve(id uint64, resp *Response) bool {
	t.mu.Lock()
	entry, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	entry.ch <- pendingResult{resp: resp}
	return true
}

// Cancel removes an entry without delivering anything. Used when the
// write that followed registration failed, so the caller already has an
// error in hand.
func (t *PendingTracker) Cancel(id uint64) {
	t.mu.Lock()
	delete(t.entries, id)
	t.mu.Unlock()
}

// CheckTimeouts fails every entry whose deadline has passed. Expired
// entries are collected under the lock and delivered after it is
// released.
func (t *PendingTracker) CheckTimeouts() {
	now := time.Now()
	var expired []struct {
		id uint64
		ch chan pendingResult
	}
	t.mu.Lock()
	for id, entry := range t.entries {
		if now.After(entry.deadline) {
			expired = append(expired, struct {
				id uint64
				ch chan pendingResult
			}{id, entry.ch})
			delete(t.entries, id)
		}
	}
	t.mu.Unlock()
	for _, e := range expired {
		e.ch <- pendingResult{err: &TimeoutError{ID: e.id}}
	}
}

// FailAll fails every outstanding entry with the given reason. Called
// when the worker dies or the bridge shuts down.
func (t *PendingTracker) FailAll(reason error) {
	t.mu.Lock()
	drained := make([]chan pendingResult, 0, len(t.entries))
	for id, entry := range t.entries {
		drained = append(drained, entry.ch)
		delete(t.entries, id)
	}
	t.mu.Unlock()
	for _, ch := range drained {
		ch <- pendingResult{err: reason}
	}
}

// Len reports the number of in-flight requests.
func (t *PendingTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
