package redis

import (
	"errors"
	"testing"
	"time"
)

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker(3, 100*time.Millisecond)
	if b.CurrentState() != StateClosed {
		t.Fatalf("expected closed on start, got %v", b.CurrentState())
	}

	errFail := errors.New("publish failed")
	for i := 0; i < 3; i++ {
		if err := b.Execute(func() error { return errFail }); err != errFail {
			t.Fatalf("expected errFail, got %v", err)
		}
	}
	if b.CurrentState() != StateOpen {
		t.Errorf("expected open after 3 failures, got %v", b.CurrentState())
	}

	// Rejected without invoking fn
	called := false
	err := b.Execute(func() error { called = true; return nil })
	if err != ErrCircuitOpen {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Error("fn must not run while open")
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(3, 100*time.Millisecond)
	errFail := errors.New("publish failed")

	b.Execute(func() error { return errFail })
	b.Execute(func() error { return errFail })
	b.Execute(func() error { return nil })
	b.Execute(func() error { return errFail })
	b.Execute(func() error { return errFail })

	if b.CurrentState() != StateClosed {
		t.Errorf("expected closed, got %v", b.CurrentState())
	}
}

func TestBreaker_ProbeClosesOnSuccess(t *testing.T) {
	b := NewBreaker(2, 50*time.Millisecond)
	errFail := errors.New("publish failed")
	for i := 0; i < 2; i++ {
		b.Execute(func() error { return errFail })
	}
	if b.CurrentState() != StateOpen {
		t.Fatal("expected open")
	}

	time.Sleep(60 * time.Millisecond)

	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe should pass: %v", err)
	}
	if b.CurrentState() != StateClosed {
		t.Errorf("expected closed after successful probe, got %v", b.CurrentState())
	}
}

func TestBreaker_ProbeReopensOnFailure(t *testing.T) {
	b := NewBreaker(2, 50*time.Millisecond)
	errFail := errors.New("publish failed")
	for i := 0; i < 2; i++ {
		b.Execute(func() error { return errFail })
	}

	time.Sleep(60 * time.Millisecond)
	b.Execute(func() error { return errFail })

	if b.CurrentState() != StateOpen {
		t.Errorf("expected open after failed probe, got %v", b.CurrentState())
	}
}

func TestBreaker_StateChangeCallback(t *testing.T) {
	b := NewBreaker(1, 50*time.Millisecond)
	var transitions []string
	b.OnStateChange = func(from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	}

	b.Execute(func() error { return errors.New("fail") })
	time.Sleep(60 * time.Millisecond)
	b.Execute(func() error { return nil })

	want := []string{"closed->open", "open->half-open", "half-open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions: %v", transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d: got %s, want %s", i, transitions[i], want[i])
		}
	}
}

func TestBufferPending_DropsOldestWhenFull(t *testing.T) {
	s := &Store{}
	for i := 0; i < maxPending+10; i++ {
		s.bufferPending("AAPL", []byte{byte(i)})
	}
	if got := s.PendingCount(); got != maxPending {
		t.Fatalf("pending count: got %d, want %d", got, maxPending)
	}
	// The oldest entries were dropped, so the head is entry 10.
	if s.pending[0].payload[0] != 10 {
		t.Errorf("head payload: got %d, want 10", s.pending[0].payload[0])
	}
}

func TestExecute_HalfOpenAdmitsSingleProbe(t *testing.T) {
	b := NewBreaker(1, 10*time.Millisecond)
	b.Execute(func() error { return errors.New("fail") })
	time.Sleep(20 * time.Millisecond)

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		b.Execute(func() error {
			close(entered)
			<-release
			return nil
		})
		close(done)
	}()
	<-entered

	// While the probe is in flight every other caller is rejected.
	called := false
	if err := b.Execute(func() error { called = true; return nil }); err != ErrCircuitOpen {
		t.Fatalf("concurrent call during probe: got %v, want ErrCircuitOpen", err)
	}
	if called {
		t.Fatal("concurrent call invoked fn while a probe was in flight")
	}

	close(release)
	<-done
	if got := b.CurrentState(); got != StateClosed {
		t.Fatalf("state after successful probe: got %s, want closed", got)
	}
}
