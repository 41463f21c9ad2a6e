package testing

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/sysprop/lib/store"
)

// StoreFactory creates a fresh, empty store. Cleanup is registered on tb.
type StoreFactory func(tb testing.TB) store.IStore

// RunStoreTests runs the IStore test suite against the stores created by factory.
func RunStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory(t))
		})

		t.Run("Overwrite", func(t *testing.T) {
			testOverwrite(t, factory(t))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory(t))
		})

		t.Run("LongValues", func(t *testing.T) {
			testLongValues(t, factory(t))
		})

		t.Run("InvalidInput", func(t *testing.T) {
			testInvalidInput(t, factory(t))
		})

		t.Run("List", func(t *testing.T) {
			testList(t, factory(t))
		})

		t.Run("Serial", func(t *testing.T) {
			testSerial(t, factory(t))
		})

		t.Run("Wait", func(t *testing.T) {
			testWait(t, factory(t))
		})

		t.Run("AreaInfo", func(t *testing.T) {
			testAreaInfo(t, factory(t))
		})

		t.Run("ConcurrentWriters", func(t *testing.T) {
			testConcurrentWriters(t, factory(t))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func mustSet(t testing.TB, s store.IStore, name, value string) {
	t.Helper()
	if err := s.Set(name, value); err != nil {
		t.Fatalf("Set(%s) failed: %v", name, err)
	}
}

func expectValue(t testing.TB, s store.IStore, name, want string) {
	t.Helper()
	got, found, err := s.Get(name)
	if err != nil {
		t.Fatalf("Get(%s) failed: %v", name, err)
	}
	if !found {
		t.Fatalf("Get(%s): property not found", name)
	}
	if got != want {
		t.Errorf("Get(%s): expected %q, got %q", name, want, got)
	}
}

func expectMissing(t testing.TB, s store.IStore, name string) {
	t.Helper()
	if v, found, err := s.Get(name); err != nil || found {
		t.Errorf("Get(%s): expected missing, got %q found=%v err=%v", name, v, found, err)
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, s store.IStore) {
	props := map[string]string{
		"ro.build.id":        "UP1A.231005.007",
		"ro.boot.serialno":   "0123456789ABCDEF",
		"sys.boot_completed": "1",
		"persist.sys.locale": "en-US",
		"debug.empty":        "",
		"single":             "segment",
	}
	for name, value := range props {
		mustSet(t, s, name, value)
	}
	for name, value := range props {
		expectValue(t, s, name, value)
	}
	expectMissing(t, s, "ro.build")
	expectMissing(t, s, "does.not.exist")
}

func testOverwrite(t *testing.T, s store.IStore) {
	mustSet(t, s, "debug.counter", "1")
	for i := 2; i <= 50; i++ {
		mustSet(t, s, "debug.counter", fmt.Sprint(i))
	}
	expectValue(t, s, "debug.counter", "50")

	mustSet(t, s, "debug.shrink", strings.Repeat("x", 91))
	mustSet(t, s, "debug.shrink", "y")
	expectValue(t, s, "debug.shrink", "y")
}

func testDelete(t *testing.T, s store.IStore) {
	mustSet(t, s, "debug.delete.me", "v")
	mustSet(t, s, "debug.delete.keep", "k")

	found, err := s.Delete("debug.delete.me")
	if err != nil || !found {
		t.Fatalf("Delete: found=%v err=%v", found, err)
	}
	expectMissing(t, s, "debug.delete.me")
	expectValue(t, s, "debug.delete.keep", "k")

	// idempotent
	found, err = s.Delete("debug.delete.me")
	if err != nil || found {
		t.Errorf("second Delete: found=%v err=%v", found, err)
	}

	mustSet(t, s, "debug.delete.me", "again")
	expectValue(t, s, "debug.delete.me", "again")
}

func testLongValues(t *testing.T, s store.IStore) {
	long := strings.Repeat("0123456789abcdef", 20)

	mustSet(t, s, "ro.vendor.fingerprint", long)
	expectValue(t, s, "ro.vendor.fingerprint", long)

	// long -> short -> long again
	mustSet(t, s, "ro.vendor.fingerprint", "short")
	expectValue(t, s, "ro.vendor.fingerprint", "short")
	mustSet(t, s, "ro.vendor.fingerprint", long+long)
	expectValue(t, s, "ro.vendor.fingerprint", long+long)

	mustSet(t, s, "sys.limited", "before")
	if err := s.Set("sys.limited", long); !errors.Is(err, store.ErrValueTooLong) {
		t.Errorf("expected ErrValueTooLong, got %v", err)
	}
	expectValue(t, s, "sys.limited", "before")
}

func testInvalidInput(t *testing.T, s store.IStore) {
	for _, name := range []string{"", ".", "a..b", "trailing.", ".leading"} {
		if err := s.Set(name, "x"); !errors.Is(err, store.ErrInvalidName) {
			t.Errorf("Set(%q): expected ErrInvalidName, got %v", name, err)
		}
		if _, _, err := s.Get(name); !errors.Is(err, store.ErrInvalidName) {
			t.Errorf("Get(%q): expected ErrInvalidName, got %v", name, err)
		}
	}
	if err := s.Set("debug.nul", "a\x00b"); !errors.Is(err, store.ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue, got %v", err)
	}
}

func testList(t *testing.T, s store.IStore) {
	want := map[string]string{
		"debug.list.a": "1",
		"debug.list.b": "2",
		"ro.list.c":    strings.Repeat("c", 120),
	}
	for name, value := range want {
		mustSet(t, s, name, value)
	}
	props, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	got := map[string]string{}
	for i, p := range props {
		got[p.Name] = p.Value
		if i > 0 && props[i-1].Name > p.Name {
			t.Errorf("List is not sorted: %s before %s", props[i-1].Name, p.Name)
		}
	}
	for name, value := range want {
		if got[name] != value {
			t.Errorf("List: %s expected %q, got %q", name, value, got[name])
		}
	}
}

func testSerial(t *testing.T, s store.IStore) {
	before, err := s.Serial()
	if err != nil {
		t.Fatalf("Serial failed: %v", err)
	}
	mustSet(t, s, "debug.serial", "1")
	mustSet(t, s, "debug.serial", "2")
	if _, err := s.Delete("debug.serial"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	after, err := s.Serial()
	if err != nil {
		t.Fatalf("Serial failed: %v", err)
	}
	if after-before != 3 {
		t.Errorf("expected the global serial to advance by 3, got %d -> %d", before, after)
	}

	// rejected writes do not publish anything
	_ = s.Set("bad..name", "x")
	if now, _ := s.Serial(); now != after {
		t.Errorf("failed Set changed the serial: %d -> %d", after, now)
	}
}

func testWait(t *testing.T, s store.IStore) {
	t.Run("WakesOnChange", func(t *testing.T) {
		mustSet(t, s, "debug.wait", "0")
		props, _ := s.List()
		var old uint32
		for _, p := range props {
			if p.Name == "debug.wait" {
				old = p.Serial
			}
		}

		go func() {
			time.Sleep(30 * time.Millisecond)
			_ = s.Set("debug.wait", "1")
		}()
		serial, ok, err := s.Wait("debug.wait", old, 5*time.Second)
		if err != nil || !ok {
			t.Fatalf("Wait: ok=%v err=%v", ok, err)
		}
		if serial == old {
			t.Errorf("Wait returned the old serial %#x", serial)
		}
		expectValue(t, s, "debug.wait", "1")
	})

	t.Run("WaitsForCreation", func(t *testing.T) {
		go func() {
			time.Sleep(30 * time.Millisecond)
			_ = s.Set("debug.wait.created", "yes")
		}()
		if _, ok, err := s.Wait("debug.wait.created", 0xffffffff, 5*time.Second); err != nil || !ok {
			t.Fatalf("Wait: ok=%v err=%v", ok, err)
		}
		expectValue(t, s, "debug.wait.created", "yes")
	})

	t.Run("Timeout", func(t *testing.T) {
		start := time.Now()
		_, ok, err := s.Wait("debug.wait.never", 0, 50*time.Millisecond)
		if err != nil || ok {
			t.Errorf("expected a timeout: ok=%v err=%v", ok, err)
		}
		if time.Since(start) < 50*time.Millisecond {
			t.Error("Wait returned before its timeout")
		}
	})
}

func testAreaInfo(t *testing.T, s store.IStore) {
	for i := 0; i < 10; i++ {
		mustSet(t, s, fmt.Sprintf("debug.info.%d", i), strings.Repeat("v", i))
	}
	infos, err := s.GetAreaInfo()
	if err != nil {
		t.Fatalf("GetAreaInfo failed: %v", err)
	}
	if len(infos) == 0 {
		t.Fatal("no areas reported")
	}
	total := 0
	for _, info := range infos {
		if info.BytesUsed > info.Capacity {
			t.Errorf("%s: %d bytes used of %d", info.Context, info.BytesUsed, info.Capacity)
		}
		if int64(info.Properties) != info.ValueSizes.Count {
			t.Errorf("%s: %d properties but %d size samples", info.Context, info.Properties, info.ValueSizes.Count)
		}
		total += info.Properties
	}
	if total < 10 {
		t.Errorf("expected at least 10 properties, got %d", total)
	}
}

func testConcurrentWriters(t *testing.T, s store.IStore) {
	const writers = 4
	const perWriter = 25

	// the global serial must never go backwards while the writers run
	stop := make(chan struct{})
	polled := make(chan error, 1)
	go func() {
		var last uint32
		for {
			select {
			case <-stop:
				polled <- nil
				return
			default:
			}
			serial, err := s.Serial()
			if err != nil {
				polled <- err
				return
			}
			if serial < last {
				polled <- fmt.Errorf("global serial went backwards: %d -> %d", last, serial)
				return
			}
			last = serial
		}
	}()

	var wg sync.WaitGroup
	errs := make(chan error, writers*perWriter*2)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if err := s.Set(fmt.Sprintf("debug.concurrent.w%d.p%d", w, i), fmt.Sprint(i)); err != nil {
					errs <- err
				}
				if err := s.Set(fmt.Sprintf("debug.concurrent.shared%d", i%3), fmt.Sprint(w)); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(stop)
	if err := <-polled; err != nil {
		t.Errorf("serial poller: %v", err)
	}
	close(errs)
	for err := range errs {
		t.Errorf("concurrent Set failed: %v", err)
	}

	for w := 0; w < writers; w++ {
		for i := 0; i < perWriter; i++ {
			expectValue(t, s, fmt.Sprintf("debug.concurrent.w%d.p%d", w, i), fmt.Sprint(i))
		}
	}
}
