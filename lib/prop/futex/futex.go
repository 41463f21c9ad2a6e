package futex

import (
	"errors"
	"math"
	"sync/atomic"
	"time"
)

// ErrTimeout is returned by Wait when the relative timeout expired before the
// word changed or a wakeup arrived.
var ErrTimeout = errors.New("futex: wait timed out")

// WakeAll can be passed to Wake to wake every waiter on a word.
const WakeAll = math.MaxInt32

// Wait blocks the calling goroutine as long as addr still holds val, until
// woken by Wake or until timeout expired. A timeout <= 0 means no timeout.
//
// Wait returns nil when the word did not hold val on entry, when it was woken
// or when the wait was interrupted. It never guarantees that the word changed.
func Wait(addr *atomic.Uint32, val uint32, timeout time.Duration) error {
	if addr.Load() != val {
		return nil
	}
	return wait(addr, val, timeout)
}

// Wake wakes up to n waiters blocked on addr and returns how many were woken
// (always 0 on platforms without futex support).
func Wake(addr *atomic.Uint32, n int) int {
	return wake(addr, n)
}
