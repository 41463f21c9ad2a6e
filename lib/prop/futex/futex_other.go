//go:build !linux

package futex

import (
	"sync/atomic"
	"time"
)

const (
	minBackoff = 50 * time.Microsecond
	maxBackoff = 5 * time.Millisecond
)

// wait polls the word until it changes or the timeout expired.
func wait(addr *atomic.Uint32, val uint32, timeout time.Duration) error {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	backoff := minBackoff
	for addr.Load() == val {
		if !deadline.IsZero() {
			left := time.Until(deadline)
			if left <= 0 {
				return ErrTimeout
			}
			if backoff > left {
				backoff = left
			}
		}
		time.Sleep(backoff)
		if backoff < maxBackoff {
			backoff *= 2
		}
	}
	return nil
}

func wake(_ *atomic.Uint32, _ int) int {
	return 0
}
