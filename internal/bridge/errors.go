package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRunning is returned by Spawn when a worker is already up.
	ErrAlreadyRunning = errors.New("agent process already running")

	// ErrNotRunning is returned when a send is attempted with no worker.
	ErrNotRunning = errors.New("agent process not running")

	// ErrKilled fails outstanding requests when the bridge is shut down.
	ErrKilled = errors.New("agent process killed")

	// ErrProcessCrashed fails outstanding requests when the worker exits
	// unexpectedly.
	ErrProcessCrashed = errors.New("agent process crashed")
)

// TimeoutError reports that a request's deadline passed with no reply.
type TimeoutError struct {
	ID uint64
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("JSON-RPC request %d timed out", e.ID)
}
