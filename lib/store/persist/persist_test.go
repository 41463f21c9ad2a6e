package persist

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/sysprop/lib/store"
)

func TestWriteLoadRemove(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "property")
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := s.Write("persist.sys.locale", "en-US"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := s.Write("persist.sys.timezone", "UTC"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := s.Write("persist.sys.locale", "de-DE"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	s.Flush()

	b, err := os.ReadFile(filepath.Join(dir, "persist.sys.locale"))
	if err != nil || string(b) != "de-DE" {
		t.Errorf("expected de-DE on disk, got %q (%v)", b, err)
	}

	// unrelated files are ignored by Load
	_ = os.WriteFile(filepath.Join(dir, "README"), []byte("x"), 0600)

	got := map[string]string{}
	n, err := s.Load(func(name, value string) error {
		got[name] = value
		return nil
	})
	if err != nil || n != 2 {
		t.Fatalf("Load: n=%d err=%v", n, err)
	}
	if got["persist.sys.locale"] != "de-DE" || got["persist.sys.timezone"] != "UTC" {
		t.Errorf("unexpected properties %v", got)
	}

	if err := s.Remove("persist.sys.timezone"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := s.Remove("persist.never.written"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "persist.sys.timezone")); !os.IsNotExist(err) {
		t.Errorf("file still exists after Remove: %v", err)
	}
	if err := s.Write("persist.late", "x"); err == nil {
		t.Error("Write after Close must fail")
	}
	s.Flush()
}

func TestRejectedNames(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if err := s.Write("sys.not.persistent", "x"); !errors.Is(err, store.ErrInvalidOperation) {
		t.Errorf("expected ErrInvalidOperation, got %v", err)
	}
	if err := s.Write("persist.a/b", "x"); !errors.Is(err, store.ErrInvalidName) {
		t.Errorf("expected ErrInvalidName, got %v", err)
	}
}

func TestLoadSkipsFailures(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"persist.a", "persist.b"} {
		if err := os.WriteFile(filepath.Join(dir, n), []byte(n), 0600); err != nil {
			t.Fatal(err)
		}
	}
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	n, err := s.Load(func(name, value string) error {
		if name == "persist.a" {
			return store.ErrAreaFull
		}
		return nil
	})
	if err != nil || n != 1 {
		t.Errorf("expected 1 restored property, got %d (%v)", n, err)
	}
}
