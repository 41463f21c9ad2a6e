package contexts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/sysprop/lib/prop/area"
	"github.com/ValentinKolb/sysprop/lib/store"
)

const testAreaSize = 16 * 1024

func writeContexts(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plat_property_contexts")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write contexts: %v", err)
	}
	return path
}

func addVia(t *testing.T, c *Contexts, name, value string) {
	t.Helper()
	a, err := c.GetPropAreaForName(name)
	if err != nil {
		t.Fatalf("GetPropAreaForName(%s) failed: %v", name, err)
	}
	if _, err := a.Add(name, value); err != nil {
		t.Fatalf("Add(%s) failed: %v", name, err)
	}
}

func TestCreateAndOpen(t *testing.T) {
	for _, serialize := range []bool{false, true} {
		t.Run(fmt.Sprintf("Serialize=%v", serialize), func(t *testing.T) {
			files := []string{writeContexts(t, testContexts)}
			dir := filepath.Join(t.TempDir(), "__properties__")

			w, _, err := Create(dir, Options{ContextFiles: files, AreaSize: testAreaSize, Serialize: serialize})
			if err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			addVia(t, w, "ro.boot.serialno", "abc")
			addVia(t, w, "ro.build.id", "xyz")
			addVia(t, w, "persist.sys.locale", "de-DE")
			addVia(t, w, "other.prop", "1")

			if w.GetSerialPropArea() == nil {
				t.Fatal("writer has no serial area")
			}
			for _, ctx := range append(w.Table().Contexts, SerialFileName) {
				if _, err := os.Stat(filepath.Join(dir, ctx)); err != nil {
					t.Errorf("area file for %s missing: %v", ctx, err)
				}
			}

			// readers do not need the contexts files when an index exists
			opts := Options{ContextFiles: files}
			if serialize {
				opts = Options{ContextFiles: []string{filepath.Join(t.TempDir(), "missing")}}
			}
			r, err := New(dir, opts)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			defer r.FreeAndUnmap()

			wantMode := Split
			if serialize {
				wantMode = Serialized
			}
			if r.Mode() != wantMode {
				t.Errorf("expected mode %s, got %s", wantMode, r.Mode())
			}

			a, err := r.GetPropAreaForName("ro.boot.serialno")
			if err != nil {
				t.Fatalf("GetPropAreaForName failed: %v", err)
			}
			if filepath.Base(a.Path()) != "u:object_r:boot_prop:s0" {
				t.Errorf("routed to %s", a.Path())
			}
			if pi := a.Find("ro.boot.serialno"); pi == nil {
				t.Error("property not found in reader")
			}
			if a.Find("ro.build.id") != nil {
				t.Error("property found in the wrong area")
			}

			n := 0
			r.ForEach(func(*area.PropInfo) bool {
				n++
				return true
			})
			if n != 4 {
				t.Errorf("expected 4 properties, got %d", n)
			}

			if _, err := r.GetPropAreaForName("ro.x"); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if r.GetSerialPropArea() == nil {
				t.Error("reader has no serial area")
			}
			if _, err := a.Add("ro.boot.new", "v"); !errors.Is(err, store.ErrReadOnly) {
				t.Errorf("expected ErrReadOnly from read-only reader, got %v", err)
			}

			w.FreeAndUnmap()
			if _, _, err := Create(dir, Options{ContextFiles: files, AreaSize: testAreaSize}); err == nil {
				t.Error("Create over existing areas should fail")
			}
		})
	}
}

func TestAccessDenied(t *testing.T) {
	files := []string{writeContexts(t, "ro. u:object_r:ro_prop:s0\nsys. u:object_r:system_prop:s0\n")}
	dir := filepath.Join(t.TempDir(), "props")
	w, _, err := Create(dir, Options{ContextFiles: files, AreaSize: testAreaSize})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer w.FreeAndUnmap()

	if _, err := w.GetPropAreaForName("vendor.x"); !errors.Is(err, store.ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied for unrouted name, got %v", err)
	}

	if os.Geteuid() == 0 {
		t.Skip("root can read every file")
	}
	r, err := New(dir, Options{ContextFiles: files})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer r.FreeAndUnmap()

	file := filepath.Join(dir, "u:object_r:system_prop:s0")
	if err := os.Chmod(file, 0); err != nil {
		t.Fatalf("chmod failed: %v", err)
	}
	if _, err := r.GetPropAreaForName("sys.x"); !errors.Is(err, store.ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied, got %v", err)
	}
	if _, err := r.GetPropAreaForName("ro.x"); err != nil {
		t.Errorf("other contexts must stay accessible: %v", err)
	}

	if err := os.Chmod(file, 0444); err != nil {
		t.Fatalf("chmod failed: %v", err)
	}
	if _, err := r.GetPropAreaForName("sys.x"); err == nil {
		t.Error("access must stay denied until ResetAccess")
	}
	r.ResetAccess()
	if _, err := r.GetPropAreaForName("sys.x"); err != nil {
		t.Errorf("expected access after ResetAccess, got %v", err)
	}
}

func TestPreSplit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy")
	a, _, err := area.MapRW(path, "", testAreaSize)
	if err != nil {
		t.Fatalf("MapRW failed: %v", err)
	}
	if _, err := a.Add("sys.legacy", "1"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	defer a.Close()

	t.Run("File", func(t *testing.T) {
		c, err := New(path, Options{})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		defer c.FreeAndUnmap()
		if c.Mode() != PreSplit {
			t.Errorf("expected pre-split, got %s", c.Mode())
		}
		got, err := c.GetPropAreaForName("anything.at.all")
		if err != nil || got.Find("sys.legacy") == nil {
			t.Errorf("legacy area not used: %v", err)
		}
		if c.GetSerialPropArea() != got {
			t.Error("legacy area must serve as serial area")
		}
	})

	t.Run("EnvFallback", func(t *testing.T) {
		f, err := os.Open(path)
		if err != nil {
			t.Fatalf("open failed: %v", err)
		}
		defer f.Close()
		t.Setenv(area.WorkspaceEnv, fmt.Sprintf("%d,%d", f.Fd(), testAreaSize))

		c, err := New(filepath.Join(t.TempDir(), "missing"), Options{})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		defer c.FreeAndUnmap()
		got, _ := c.GetPropAreaForName("sys.legacy")
		if got == nil || got.Find("sys.legacy") == nil {
			t.Error("inherited area not used")
		}
	})

	t.Run("Missing", func(t *testing.T) {
		t.Setenv(area.WorkspaceEnv, "")
		if _, err := New(filepath.Join(t.TempDir(), "missing"), Options{}); !errors.Is(err, store.ErrAreaUnavailable) {
			t.Errorf("expected ErrAreaUnavailable, got %v", err)
		}
	})
}

func TestDefaultContextFiles(t *testing.T) {
	root := t.TempDir()
	if got := DefaultContextFiles(root); len(got) != 1 || got[0] != filepath.Join(root, "property_contexts") {
		t.Errorf("expected legacy fallback, got %v", got)
	}

	sel := filepath.Join(root, "system", "etc", "selinux")
	if err := os.MkdirAll(sel, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sel, "plat_property_contexts"), nil, 0644); err != nil {
		t.Fatal(err)
	}
	got := DefaultContextFiles(root)
	want := []string{
		filepath.Join(sel, "plat_property_contexts"),
		filepath.Join(root, "vendor", "etc", "selinux", "nonplat_property_contexts"),
	}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("expected %v, got %v", want, got)
	}
}
