package area

import (
	"fmt"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/ValentinKolb/sysprop/lib/prop/futex"
	"github.com/ValentinKolb/sysprop/lib/store"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("area")

// Area is one property area: a header followed by a bump allocated arena.
// The memory is usually a shared file mapping (see MapRW and Map) but any
// 4 byte aligned byte slice works.
//
// Thread-safety: all read methods are safe for concurrent use. Methods that
// mutate the arena (Add, Update, Delete, Allocate, BumpSerial) must not be
// called concurrently with each other.
type Area struct {
	mem      []byte
	path     string
	writable bool
	release  func([]byte) error
}

// --------------------------------------------------------------------------
// Construction
// --------------------------------------------------------------------------

// Format initialises mem as an empty area and returns a writable handle to it.
// All previous content of mem is cleared.
func Format(mem []byte) (*Area, error) {
	if len(mem) < HeaderSize+initialBytesUsed {
		return nil, store.Errorf(store.RetCAreaUnavailable, "area of %d bytes is too small", len(mem))
	}
	if uint64(len(mem)) > uint64(^uint32(0)) {
		return nil, store.Errorf(store.RetCAreaUnavailable, "area of %d bytes is too large", len(mem))
	}
	clear(mem)
	a := &Area{mem: mem, writable: true}
	native.PutUint32(mem[offMagic:], Magic)
	native.PutUint32(mem[offVersion:], Version)
	a.word(offBytesUsed).Store(initialBytesUsed)
	return a, nil
}

// Open validates the header of an existing area held in mem.
func Open(mem []byte, writable bool) (*Area, error) {
	if len(mem) < HeaderSize {
		return nil, store.Errorf(store.RetCAreaUnavailable, "area of %d bytes is smaller than its header", len(mem))
	}
	if uint64(len(mem)) > uint64(^uint32(0)) {
		return nil, store.Errorf(store.RetCAreaUnavailable, "area of %d bytes is too large", len(mem))
	}
	if m := native.Uint32(mem[offMagic:]); m != Magic {
		return nil, store.Errorf(store.RetCAreaUnavailable, "bad area magic %#x", m)
	}
	if v := native.Uint32(mem[offVersion:]); v != Version {
		return nil, store.Errorf(store.RetCAreaUnavailable, "unsupported area version %#x", v)
	}
	a := &Area{mem: mem, writable: writable}
	if used := a.BytesUsed(); used < initialBytesUsed || used > a.Capacity() {
		return nil, store.Errorf(store.RetCAreaUnavailable, "corrupt area: %d of %d bytes used", used, a.Capacity())
	}
	return a, nil
}

// Close releases the mapping. The area and every PropInfo obtained from it
// must not be used afterwards.
func (a *Area) Close() error {
	if a == nil || a.mem == nil {
		return nil
	}
	mem := a.mem
	a.mem = nil
	if a.release == nil {
		return nil
	}
	if err := a.release(mem); err != nil {
		return fmt.Errorf("failed to unmap %s: %w", a.path, err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Header Accessors
// --------------------------------------------------------------------------

// Path returns the file backing the area, or "" for anonymous memory.
func (a *Area) Path() string { return a.path }

// Writable reports whether mutations are allowed.
func (a *Area) Writable() bool { return a.writable }

// Capacity returns the size of the arena in bytes.
func (a *Area) Capacity() uint32 { return uint32(len(a.mem) - HeaderSize) }

// BytesUsed returns the arena cursor.
func (a *Area) BytesUsed() uint32 { return a.word(offBytesUsed).Load() }

// Serial returns the area wide change counter.
func (a *Area) Serial() uint32 { return a.word(offSerial).Load() }

// BumpSerial increments the area serial and wakes every waiter blocked on it.
func (a *Area) BumpSerial() uint32 {
	w := a.word(offSerial)
	s := w.Add(1)
	futex.Wake(w, futex.WakeAll)
	return s
}

// WaitSerial blocks until the area serial differs from old or the timeout
// expires. A timeout <= 0 waits forever.
func (a *Area) WaitSerial(old uint32, timeout time.Duration) (uint32, bool) {
	return waitChange(a.word(offSerial), old, timeout, func(uint32) bool { return true })
}

// --------------------------------------------------------------------------
// Arena
// --------------------------------------------------------------------------

// Allocate reserves size bytes (rounded up to 4) in the arena and returns the
// data offset of the block. The block is zeroed.
func (a *Area) Allocate(size uint32) (uint32, error) {
	if !a.writable {
		return 0, store.ErrReadOnly
	}
	aligned := align4(size)
	used := a.BytesUsed()
	if uint64(used)+uint64(aligned) > uint64(a.Capacity()) {
		return 0, store.Errorf(store.RetCAreaFull, "cannot allocate %d bytes, %d of %d in use", aligned, used, a.Capacity())
	}
	clear(a.data(used, aligned))
	a.word(offBytesUsed).Store(used + aligned)
	return used, nil
}

// word returns the atomic view of the u32 at off, relative to the mapping.
func (a *Area) word(off uint32) *atomic.Uint32 {
	return (*atomic.Uint32)(unsafe.Pointer(&a.mem[off]))
}

// dataWord returns the atomic view of the u32 at the data offset off.
func (a *Area) dataWord(off uint32) *atomic.Uint32 {
	return a.word(HeaderSize + off)
}

// data returns n bytes of the arena starting at off.
func (a *Area) data(off, n uint32) []byte {
	start := HeaderSize + off
	return a.mem[start : start+n : start+n]
}

// inBounds reports whether [off, off+n) lies within the allocated arena.
func (a *Area) inBounds(off, n uint32) bool {
	return uint64(off)+uint64(n) <= uint64(a.BytesUsed())
}

// cstring returns the NUL terminated string at off, or false if it runs past
// the allocated arena.
func (a *Area) cstring(off uint32) ([]byte, bool) {
	used := a.BytesUsed()
	if off >= used {
		return nil, false
	}
	buf := a.data(off, used-off)
	for i, c := range buf {
		if c == 0 {
			return buf[:i], true
		}
	}
	return nil, false
}
