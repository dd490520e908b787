package bridge

import (
	"testing"
	"time"
)

func TestSupervisorLifecycle(t *testing.T) {
	s := NewSupervisor(3)
	if got := s.State(); got != StateStopped {
		t.Fatalf("initial state = %v, want stopped", got)
	}

	s.RecordStarting()
	if got := s.State(); got != StateStarting {
		t.Errorf("state = %v, want starting", got)
	}

	s.RecordStarted()
	if got := s.State(); got != StateRunning {
		t.Errorf("state = %v, want running", got)
	}

	s.RecordStopped()
	snap := s.Snapshot()
	if snap.State != StateStopped || snap.Crashes != 0 {
		t.Errorf("snapshot = %+v, want stopped with zero crashes", snap)
	}
}

func TestCrashCountAccumulatesAcrossRestarts(t *testing.T) {
	s := NewSupervisor(3)
	s.RecordStarting()
	s.RecordStarted()

	if n := s.RecordCrash(); n != 1 {
		t.Errorf("first crash count = %d, want 1", n)
	}
	if !s.ShouldRestart() {
		t.Fatal("should restart after first crash")
	}

	s.RecordRestarting()
	s.RecordStarted()
	if n := s.RecordCrash(); n != 2 {
		t.Errorf("second crash count = %d, want 2", n)
	}
	if !s.ShouldRestart() {
		t.Fatal("should restart after second crash")
	}

	s.RecordRestarting()
	s.RecordStarted()
	if n := s.RecordCrash(); n != 3 {
		t.Errorf("third crash count = %d, want 3", n)
	}
	if s.ShouldRestart() {
		t.Error("budget of 3 must refuse a fourth launch")
	}
}

func TestCrashCountResetsOnNewCycle(t *testing.T) {
	s := NewSupervisor(3)
	s.RecordStarting()
	s.RecordStarted()
	s.RecordCrash()
	s.RecordCrash()

	s.RecordStarting()
	if snap := s.Snapshot(); snap.Crashes != 0 {
		t.Errorf("crashes = %d after new cycle, want 0", snap.Crashes)
	}
}

func TestRelaunchFailureKeepsCount(t *testing.T) {
	s := NewSupervisor(3)
	s.RecordStarting()
	s.RecordStarted()
	s.RecordCrash()
	s.RecordRestarting()
	s.RecordRelaunchFailed()

	snap := s.Snapshot()
	if snap.State != StateCrashed {
		t.Errorf("state = %v, want crashed", snap.State)
	}
	if snap.Crashes != 1 {
		t.Errorf("crashes = %d, want 1", snap.Crashes)
	}
}

func TestBackoffSequence(t *testing.T) {
	want := []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second,
		30 * time.Second,
	}
	for n, d := range want {
		if got := Backoff(n); got != d {
			t.Errorf("Backoff(%d) = %s, want %s", n, got, d)
		}
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateStopped:  "stopped",
		StateStarting: "starting",
		StateRunning:  "running",
		StateCrashed:  "crashed",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(state), got, want)
		}
	}
}
