package lockmgr

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func lockFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "u:object_r:test_prop:s0")
	if err := os.WriteFile(path, nil, 0444); err != nil {
		t.Fatalf("failed to create lock file: %v", err)
	}
	return path
}

func TestAcquireRelease(t *testing.T) {
	lm := NewLockManager()
	key := lockFile(t)

	ok, owner, err := lm.AcquireLock(key, 0)
	if err != nil || !ok || len(owner) != ownerIDLength {
		t.Fatalf("AcquireLock: ok=%v err=%v", ok, err)
	}

	t.Run("Contended", func(t *testing.T) {
		start := time.Now()
		ok, _, err := lm.AcquireLock(key, 20)
		if err != nil || ok {
			t.Errorf("second acquire should time out: ok=%v err=%v", ok, err)
		}
		if time.Since(start) < 20*time.Millisecond {
			t.Error("acquire returned before its timeout")
		}
	})

	t.Run("WrongOwner", func(t *testing.T) {
		ok, err := lm.ReleaseLock(key, []byte("not the owner"))
		if err != nil || ok {
			t.Errorf("release by a stranger: ok=%v err=%v", ok, err)
		}
	})

	ok, err = lm.ReleaseLock(key, owner)
	if err != nil || !ok {
		t.Fatalf("ReleaseLock: ok=%v err=%v", ok, err)
	}
	if ok, err := lm.ReleaseLock(key, owner); err != nil || !ok {
		t.Errorf("releasing a free lock should succeed: ok=%v err=%v", ok, err)
	}

	ok, owner, err = lm.AcquireLock(key, 0)
	if err != nil || !ok {
		t.Fatalf("re-acquire failed: ok=%v err=%v", ok, err)
	}
	_, _ = lm.ReleaseLock(key, owner)
}

func TestAcquireMissingFile(t *testing.T) {
	lm := NewLockManager()
	if _, _, err := lm.AcquireLock(filepath.Join(t.TempDir(), "missing"), 0); err == nil {
		t.Error("expected error for missing lock file")
	}
}

func TestMutualExclusion(t *testing.T) {
	lm := NewLockManager()
	key := lockFile(t)

	var inside atomic.Int32
	var violations atomic.Int32
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				ok, owner, err := lm.AcquireLock(key, 5000)
				if err != nil || !ok {
					t.Errorf("acquire failed: ok=%v err=%v", ok, err)
					return
				}
				if inside.Add(1) != 1 {
					violations.Add(1)
				}
				time.Sleep(100 * time.Microsecond)
				inside.Add(-1)
				if ok, err := lm.ReleaseLock(key, owner); err != nil || !ok {
					t.Errorf("release failed: ok=%v err=%v", ok, err)
					return
				}
			}
		}()
	}
	wg.Wait()
	if v := violations.Load(); v != 0 {
		t.Errorf("%d goroutines held the lock at the same time", v)
	}
}
