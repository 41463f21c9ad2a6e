package area

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// checkedValue builds a value whose content can be verified from its length alone.
func checkedValue(i int) string {
	n := 1 + i%(PropValueMax-1)
	return strings.Repeat(string(rune('a'+n%26)), n)
}

func TestNoTornReads(t *testing.T) {
	a := newTestArea(t, DefaultSize)
	pi, err := a.Add("debug.torn", checkedValue(0))
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	const writes = 20000
	var done atomic.Bool
	var wg sync.WaitGroup
	var torn, backwards atomic.Int64

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var lastCounter, lastArea uint32
			for !done.Load() {
				v, serial, _ := pi.Read()
				if SerialDirty(serial) || len(v) != SerialValueLen(serial) || v != checkedValue(len(v)-1) {
					torn.Add(1)
				}
				if serial&0xffffff < lastCounter {
					backwards.Add(1)
				}
				lastCounter = serial & 0xffffff
				if s := a.Serial(); s < lastArea {
					backwards.Add(1)
				} else {
					lastArea = s
				}
			}
		}()
	}

	last := pi.Serial()
	for i := 1; i <= writes; i++ {
		serial, err := a.Update(pi, checkedValue(i))
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if serial&0xffffff != (last+2)&0xffffff {
			t.Fatalf("serial %#x does not follow %#x", serial, last)
		}
		last = serial
		a.BumpSerial()
	}
	done.Store(true)
	wg.Wait()

	if n := torn.Load(); n != 0 {
		t.Errorf("observed %d torn reads", n)
	}
	if n := backwards.Load(); n != 0 {
		t.Errorf("observed %d serials going backwards", n)
	}
}

func TestPropertyWait(t *testing.T) {
	a := newTestArea(t, DefaultSize)
	pi, _ := a.Add("debug.wait", "0")

	t.Run("WakesOnUpdate", func(t *testing.T) {
		old := pi.Serial()
		result := make(chan uint32, 1)
		go func() {
			s, ok := pi.Wait(old, 5*time.Second)
			if !ok {
				s = 0
			}
			result <- s
		}()
		time.Sleep(20 * time.Millisecond)
		serial, err := a.Update(pi, "1")
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		select {
		case s := <-result:
			if s != serial {
				t.Errorf("expected serial %#x, got %#x", serial, s)
			}
		case <-time.After(10 * time.Second):
			t.Fatal("waiter was not woken")
		}
	})

	t.Run("ReturnsImmediatelyWhenChanged", func(t *testing.T) {
		s, ok := pi.Wait(pi.Serial()+2, time.Second)
		if !ok || s != pi.Serial() {
			t.Errorf("expected immediate return, got %#x %v", s, ok)
		}
	})

	t.Run("Timeout", func(t *testing.T) {
		start := time.Now()
		if _, ok := pi.Wait(pi.Serial(), 30*time.Millisecond); ok {
			t.Error("expected timeout")
		}
		if time.Since(start) < 30*time.Millisecond {
			t.Error("returned before the timeout")
		}
	})
}

func TestAreaSerialWait(t *testing.T) {
	a := newTestArea(t, DefaultSize)
	old := a.Serial()

	go func() {
		time.Sleep(20 * time.Millisecond)
		a.BumpSerial()
	}()
	s, ok := a.WaitSerial(old, 5*time.Second)
	if !ok || s != old+1 {
		t.Errorf("expected %d, got %d (ok=%v)", old+1, s, ok)
	}
	if _, ok := a.WaitSerial(a.Serial(), 10*time.Millisecond); ok {
		t.Error("expected timeout without changes")
	}
}
