package bridge

import (
	"fmt"
	"sync"
	"time"
)

// State is the lifecycle phase of the supervised worker process.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateCrashed
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateCrashed:
		return "crashed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Snapshot is a point-in-time copy of the supervisor's state. Crashes
// counts consecutive crashes since the current spawn cycle began.
type Snapshot struct {
	State   State
	Crashes int
}

// Supervisor tracks worker lifecycle state and decides whether another
// restart attempt is allowed. It holds no process handles; the bridge
// owns those and reports transitions here.
type Supervisor struct {
	mu          sync.Mutex
	state       State
	crashes     int
	maxRestarts int
}

// NewSupervisor returns a supervisor in StateStopped with the given
// restart budget.
func NewSupervisor(maxRestarts int) *Supervisor {
	return &Supervisor{state: StateStopped, maxRestarts: maxRestarts}
}

// Snapshot returns a copy of the current state.
func (s *Supervisor) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{State: s.state, Crashes: s.crashes}
}

// State returns the current lifecycle phase.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RecordStarting marks the beginning of a spawn attempt and clears the
// crash count of any previous cycle.
func (s *Supervisor) RecordStarting() {
	s.mu.Lock()
	s.state = StateStarting
	s.crashes = 0
	s.mu.Unlock()
}

// RecordStarted marks a successful launch. The crash count is kept:
// restarts within one cycle remain bounded even when each relaunch
// briefly succeeds before dying again.
func (s *Supervisor) RecordStarted() {
	s.mu.Lock()
	s.state = StateRunning
	s.mu.Unlock()
}

// RecordRestarting marks a restart attempt after a crash, without
// touching the crash count.
func (s *Supervisor) RecordRestarting() {
	s.mu.Lock()
	s.state = StateStarting
	s.mu.Unlock()
}

// RecordRelaunchFailed returns to StateCrashed after a restart attempt
// that could not launch a process. The crash count is untouched so the
// retry is not charged against the budget.
func (s *Supervisor) RecordRelaunchFailed() {
	s.mu.Lock()
	s.state = StateCrashed
	s.mu.Unlock()
}

// RecordCrash transitions to StateCrashed and returns the updated
// consecutive crash count.
func (s *Supervisor) RecordCrash() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateCrashed
	s.crashes++
	return s.crashes
}

// RecordStopped marks an explicit stop and resets the crash count.
func (s *Supervisor) RecordStopped() {
	s.mu.Lock()
	s.state = StateStopped
	s.crashes = 0
	s.mu.Unlock()
}

// ShouldRestart reports whether the restart budget allows another
// attempt after the current crash.
func (s *Supervisor) ShouldRestart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.crashes < s.maxRestarts
}

// Backoff returns the delay before restart attempt n. The first retry
// waits one second; later retries double up to a thirty second cap.
func Backoff(n int) time.Duration {
	if n <= 0 {
		return time.Second
	}
	const maxDelay = 30 * time.Second
	if n >= 5 {
		return maxDelay
	}
	d := time.Second << uint(n)
	if d > maxDelay {
		return maxDelay
	}
	return d
}
