package bridge

import (
	"sync"
	"time"
)

// healthRecord tracks the last successful contact with the worker. A
// zero last-contact time means no probe has completed yet, which is
// treated as healthy so a slow-starting worker is not flagged during
// its startup grace period.
type healthRecord struct {
	mu          sync.Mutex
	lastContact time.Time
}

func (h *healthRecord) recordContact(t time.Time) {
	h.mu.Lock()
	h.lastContact = t
	h.mu.Unlock()
}

func (h *healthRecord) last() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastContact
}

func (h *healthRecord) reset() {
	h.mu.Lock()
	h.lastContact = time.Time{}
	h.mu.Unlock()
}

// withinWindow reports whether the last contact is recent enough, or
// whether none has happened yet.
func (h *healthRecord) withinWindow(window time.Duration) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lastContact.IsZero() {
		return true
	}
	return time.Since(h.lastContact) < window
}
