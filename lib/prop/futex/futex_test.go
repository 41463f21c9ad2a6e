package futex

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestWaitReturnsImmediatelyOnMismatch(t *testing.T) {
	var word atomic.Uint32
	word.Store(7)

	start := time.Now()
	if err := Wait(&word, 6, time.Second); err != nil {
		t.Fatalf("Expected nil error, got %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("Wait on a mismatching value should not block")
	}
}

func TestWaitTimeout(t *testing.T) {
	var word atomic.Uint32

	start := time.Now()
	err := Wait(&word, 0, 20*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Expected ErrTimeout, got %v", err)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Errorf("Wait returned too early")
	}
}

func TestWakeAfterStore(t *testing.T) {
	var word atomic.Uint32
	done := make(chan struct{})

	go func() {
		defer close(done)
		for word.Load() == 0 {
			if err := Wait(&word, 0, 0); err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}
		}
	}()

	time.Sleep(10 * time.Millisecond)
	word.Store(1)
	Wake(&word, WakeAll)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Waiter was not woken up")
	}
}
