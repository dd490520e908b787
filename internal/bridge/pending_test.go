package bridge

import (
	"errors"
	"testing"
	"time"
)

func TestRegisterAndResolve(t *testing.T) {
	tr := NewPendingTracker()
	ch := tr.Register(1, time.Minute)

	resp := &Response{JSONRPC: "2.0", ID: 1}
	if !tr.Resolve(1, resp) {
		t.Fatal("Resolve returned false for registered id")
	}
	res := <-ch
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	if res.resp.ID != 1 {
		t.Errorf("resolved id = %d, want 1", res.resp.ID)
	}
	if tr.Len() != 0 {
		t.Errorf("tracker still holds %d entries", tr.Len())
	}
}

func TestResolveUnknownID(t *testing.T) {
	tr := NewPendingTracker()
	if tr.Resolve(99, &Response{ID: 99}) {
		t.Error("Resolve returned true for unknown id")
	}
}

func TestResolveTwiceDeliversOnce(t *testing.T) {
	tr := NewPendingTracker()
	tr.Register(5, time.Minute)
	if !tr.Resolve(5, &Response{ID: 5}) {
		t.Fatal("first Resolve failed")
	}
	if tr.Resolve(5, &Response{ID: 5}) {
		t.Error("second Resolve should find nothing")
	}
}

func TestCheckTimeoutsFailsExpired(t *testing.T) {
	tr := NewPendingTracker()
	expired := tr.Register(1, -time.Second)
	live := tr.Register(2, time.Minute)

	tr.CheckTimeouts()

	res := <-expired
	var te *TimeoutError
	if !errors.As(res.err, &te) {
		t.Fatalf("expired entry got %v, want TimeoutError", res.err)
	}
	if te.ID != 1 {
		t.Errorf("timeout id = %d, want 1", te.ID)
	}

	select {
	case res := <-live:
		t.Fatalf("live entry delivered early: %+v", res)
	default:
	}
	if tr.Len() != 1 {
		t.Errorf("tracker holds %d entries, want 1", tr.Len())
	}
}

func TestFailAll(t *testing.T) {
	tr := NewPendingTracker()
	a := tr.Register(1, time.Minute)
	b := tr.Register(2, time.Minute)

	tr.FailAll(ErrKilled)

	for _, ch := range []<-chan pendingResult{a, b} {
		res := <-ch
		if !errors.Is(res.err, ErrKilled) {
			t.Errorf("got %v, want ErrKilled", res.err)
		}
	}
	if tr.Len() != 0 {
		t.Errorf("tracker holds %d entries after FailAll", tr.Len())
	}
}

func TestEntriesAreIndependent(t *testing.T) {
	tr := NewPendingTracker()
	a := tr.Register(1, time.Minute)
	b := tr.Register(2, time.Minute)

	tr.Resolve(2, &Response{ID: 2})

	res := <-b
	if res.resp.ID != 2 {
		t.Errorf("resolved id = %d, want 2", res.resp.ID)
	}
	select {
	case <-a:
		t.Fatal("unrelated entry was delivered")
	default:
	}
}

func TestCancelRemovesWithoutDelivery(t *testing.T) {
	tr := NewPendingTracker()
	ch := tr.Register(1, time.Minute)
	tr.Cancel(1)
	if tr.Len() != 0 {
		t.Errorf("tracker holds %d entries after Cancel", tr.Len())
	}
	select {
	case res := <-ch:
		t.Fatalf("cancelled entry delivered: %+v", res)
	default:
	}
}
