package area

import (
	"bytes"
	"sync/atomic"
	"time"
)

// PropInfo is a handle to one property inside an area. Handles stay valid for
// the lifetime of the mapping; a deleted property keeps its memory, so a stale
// handle still reads the last value it held.
type PropInfo struct {
	area *Area
	off  uint32
}

// Area returns the area holding the property.
func (pi *PropInfo) Area() *Area { return pi.area }

// Name returns the full property name.
func (pi *PropInfo) Name() string {
	name, _ := pi.area.cstring(pi.off + infoName)
	return string(name)
}

// Serial returns the current serial of the property.
func (pi *PropInfo) Serial() uint32 {
	return pi.serialWord().Load()
}

// IsLong reports whether the value lives in an overflow buffer.
func (pi *PropInfo) IsLong() bool {
	return pi.isLong(pi.Serial())
}

// ReadLegacy returns the inline value with the seqlock protocol. Long
// properties yield their inline error message.
func (pi *PropInfo) ReadLegacy() (value string, serial uint32, retries int) {
	var buf [PropValueMax]byte
	var n int
	serial, retries = pi.lock().read(func(s uint32) {
		n = min(SerialValueLen(s), PropValueMax-1)
		copy(buf[:n], pi.valueSlot())
	})
	return string(buf[:n]), serial, retries
}

// Read returns the full value with the seqlock protocol.
func (pi *PropInfo) Read() (value string, serial uint32, retries int) {
	value, serial, retries = pi.ReadLegacy()
	if pi.isLong(serial) {
		value = string(pi.longValue())
	}
	return value, serial, retries
}

// ReadFast returns the full value of a read-only property from a single copy
// and reports false if the copy could not be validated. The caller then falls
// back to Read.
func (pi *PropInfo) ReadFast() (value string, serial uint32, ok bool) {
	w := pi.serialWord()
	serial = w.Load()
	if SerialDirty(serial) {
		return "", serial, false
	}
	if pi.isLong(serial) {
		return string(pi.longValue()), serial, true
	}
	var buf [PropValueMax]byte
	n := min(SerialValueLen(serial), PropValueMax-1)
	copy(buf[:n], pi.valueSlot())
	if w.Load() != serial {
		return "", serial, false
	}
	return string(buf[:n]), serial, true
}

// Wait blocks until the serial of the property differs from old and is not
// dirty, or the timeout expires. A timeout <= 0 waits forever.
func (pi *PropInfo) Wait(old uint32, timeout time.Duration) (uint32, bool) {
	return waitChange(pi.serialWord(), old, timeout, func(s uint32) bool { return !SerialDirty(s) })
}

// --------------------------------------------------------------------------
// Internal Helpers
// --------------------------------------------------------------------------

func (pi *PropInfo) serialWord() *atomic.Uint32 {
	return pi.area.dataWord(pi.off + infoSerial)
}

func (pi *PropInfo) lock() seqlock {
	return seqlock{word: pi.serialWord()}
}

func (pi *PropInfo) valueSlot() []byte {
	return pi.area.data(pi.off+infoValue, PropValueMax)
}

// CounterExhausted reports whether one more in-place update would carry the
// write counter of a read-only property into LongFlag. Such a property has to
// be deleted and added again, which restarts its counter.
func (pi *PropInfo) CounterExhausted() bool {
	serial := pi.Serial()
	return !pi.isLong(serial) && pi.isLong(nextSerial(serial|1, 0))
}

// isLong decides with a given serial. The long flag shares the counter bits,
// so it only counts for names that can hold long values.
func (pi *PropInfo) isLong(serial uint32) bool {
	return serial&LongFlag != 0 && bytes.HasPrefix(pi.nameBytes(), []byte("ro."))
}

func (pi *PropInfo) nameBytes() []byte {
	name, _ := pi.area.cstring(pi.off + infoName)
	return name
}

// longValue resolves the overflow buffer. The offset is relative to the info.
func (pi *PropInfo) longValue() []byte {
	rel := native.Uint32(pi.area.data(pi.off+infoLongOffset, 4))
	v, ok := pi.area.cstring(pi.off + rel)
	if !ok {
		return nil
	}
	return v
}
