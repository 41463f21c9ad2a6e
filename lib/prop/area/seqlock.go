package area

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/sysprop/lib/prop/futex"
)

// seqlock guards the inline value of a property with its serial word.
// Bit 0 of the word is set while a write is in progress.
type seqlock struct {
	word *atomic.Uint32
}

// read calls snapshot with a clean serial until the serial is unchanged after
// the copy, so the copy made by snapshot is consistent. It returns the serial
// the copy belongs to and how often the read had to be repeated.
func (s seqlock) read(snapshot func(serial uint32)) (serial uint32, retries int) {
	serial = s.word.Load()
	for {
		if SerialDirty(serial) {
			_ = futex.Wait(s.word, serial, 0)
			serial = s.word.Load()
			retries++
			continue
		}
		snapshot(serial)
		again := s.word.Load()
		if again == serial {
			return serial, retries
		}
		serial = again
		retries++
	}
}

// write marks the serial dirty, runs mutate and publishes the new serial for a
// value of length n. Waiters on the word are woken. One write advances the
// counter bits by exactly two.
func (s seqlock) write(n int, mutate func()) uint32 {
	dirty := s.word.Load() | 1
	s.word.Store(dirty)
	mutate()
	next := nextSerial(dirty, n)
	s.word.Store(next)
	futex.Wake(s.word, futex.WakeAll)
	return next
}

// waitChange blocks until word holds a value different from old that settled
// accepts. A timeout <= 0 waits forever.
func waitChange(word *atomic.Uint32, old uint32, timeout time.Duration, settled func(uint32) bool) (uint32, bool) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		cur := word.Load()
		if cur != old && settled(cur) {
			return cur, true
		}
		var left time.Duration
		if !deadline.IsZero() {
			if left = time.Until(deadline); left <= 0 {
				return cur, false
			}
		}
		if err := futex.Wait(word, cur, left); errors.Is(err, futex.ErrTimeout) {
			cur = word.Load()
			if cur != old && settled(cur) {
				return cur, true
			}
			return cur, false
		}
	}
}
