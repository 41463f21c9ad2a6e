// Package futex provides a condition variable over a 32-bit atomic word that
// may live in memory shared between processes.
//
// On Linux the implementation is a thin wrapper around futex(2) without the
// FUTEX_PRIVATE_FLAG, so waiters in one process are woken by writers in
// another process as long as both map the same file. On every other platform
// waiting degrades to polling the word with a bounded backoff, and Wake is a
// no-op. Both behave identically from the caller's point of view: Wait may
// return spuriously, so callers always re-check the word in a loop.
//
// Usage:
//
//	for word.Load() == old {
//	    if err := futex.Wait(word, old, timeout); errors.Is(err, futex.ErrTimeout) {
//	        return false
//	    }
//	}
package futex
