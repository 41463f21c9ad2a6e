package contexts

import (
	"strings"
	"testing"
)

func mustAdd(t *testing.T, tbl *Table, prefix, context string, exact bool) {
	t.Helper()
	if err := tbl.Add(prefix, context, exact); err != nil {
		t.Fatalf("Add(%s, %s) failed: %v", prefix, context, err)
	}
}

func TestTableLongestPrefix(t *testing.T) {
	tbl := &Table{}
	mustAdd(t, tbl, "*", "u:object_r:default_prop:s0", false)
	mustAdd(t, tbl, "ro.", "u:object_r:ro_prop:s0", false)
	mustAdd(t, tbl, "ro.boot.", "u:object_r:boot_prop:s0", false)
	mustAdd(t, tbl, "sys.", "u:object_r:system_prop:s0", false)

	cases := map[string]string{
		"ro.boot.serialno": "u:object_r:boot_prop:s0",
		"ro.build.id":      "u:object_r:ro_prop:s0",
		"sys.foo":          "u:object_r:system_prop:s0",
		"foo.bar":          "u:object_r:default_prop:s0",
		"ro":               "u:object_r:default_prop:s0",
	}
	for name, want := range cases {
		if got, ok := tbl.LookupContext(name); !ok || got != want {
			t.Errorf("Lookup(%s): expected %s, got %s", name, want, got)
		}
	}

	if last := tbl.Entries[len(tbl.Entries)-1]; last.Prefix != "*" {
		t.Errorf("expected * last, got %s", last.Prefix)
	}
	for i := 1; i < len(tbl.Entries)-1; i++ {
		if len(tbl.Entries[i].Prefix) > len(tbl.Entries[i-1].Prefix) {
			t.Errorf("entries not ordered longest first: %v", tbl.Entries)
		}
	}
}

func TestTableEqualLengthFirstWins(t *testing.T) {
	tbl := &Table{}
	mustAdd(t, tbl, "net.", "u:object_r:first:s0", false)
	mustAdd(t, tbl, "net.", "u:object_r:second:s0", false)
	if got, _ := tbl.LookupContext("net.dns1"); got != "u:object_r:first:s0" {
		t.Errorf("expected the first entry to win, got %s", got)
	}
	if len(tbl.Contexts) != 2 {
		t.Errorf("expected 2 contexts, got %d", len(tbl.Contexts))
	}
}

func TestTableExact(t *testing.T) {
	tbl := &Table{}
	mustAdd(t, tbl, "ro.", "u:object_r:ro_prop:s0", false)
	mustAdd(t, tbl, "ro.debuggable", "u:object_r:debug_prop:s0", true)

	if got, _ := tbl.LookupContext("ro.debuggable"); got != "u:object_r:debug_prop:s0" {
		t.Errorf("exact match lost: %s", got)
	}
	if got, _ := tbl.LookupContext("ro.debuggable.x"); got != "u:object_r:ro_prop:s0" {
		t.Errorf("exact entry matched as prefix: %s", got)
	}
	if !tbl.Entries[0].Exact {
		t.Error("exact entries must come first")
	}
	if _, ok := tbl.LookupContext("sys.x"); ok {
		t.Error("expected no match without a default entry")
	}
}

func TestTableInvalid(t *testing.T) {
	tbl := &Table{}
	for _, ctx := range []string{"", ".", "..", "a/b", "nul\x00"} {
		if err := tbl.Add("x.", ctx, false); err == nil {
			t.Errorf("expected error for context %q", ctx)
		}
	}
	if err := tbl.Add("", "u:object_r:x:s0", false); err == nil {
		t.Error("expected error for empty prefix")
	}
}

const testContexts = `
# comment line
ctl.start               u:object_r:ctl_start_prop:s0
ro.                     u:object_r:ro_prop:s0
ro.boot.                u:object_r:boot_prop:s0 prefix string
ro.debuggable           u:object_r:debug_prop:s0 exact bool
persist.                u:object_r:persist_prop:s0

malformed
*                       u:object_r:default_prop:s0
`

func TestParse(t *testing.T) {
	tbl := &Table{}
	if err := tbl.Parse(strings.NewReader(testContexts)); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(tbl.Entries) != 5 {
		t.Fatalf("expected 5 entries, got %d: %v", len(tbl.Entries), tbl.Entries)
	}
	for _, e := range tbl.Entries {
		if strings.HasPrefix(e.Prefix, "ctl.") {
			t.Errorf("ctl. entry was not skipped")
		}
	}
	if got, _ := tbl.LookupContext("ro.debuggable"); got != "u:object_r:debug_prop:s0" {
		t.Errorf("unexpected context %s", got)
	}
	if got, _ := tbl.LookupContext("ctl.start"); got != "u:object_r:default_prop:s0" {
		t.Errorf("unexpected context %s", got)
	}

	if err := (&Table{}).Parse(strings.NewReader("x. bad/context\n")); err == nil {
		t.Error("expected error for invalid context")
	}
}

func TestIndexRoundTrip(t *testing.T) {
	tbl := &Table{}
	if err := tbl.Parse(strings.NewReader(testContexts)); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	b, err := tbl.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}

	var got Table
	if err := got.UnmarshalBinary(b); err != nil {
		t.Fatalf("UnmarshalBinary failed: %v", err)
	}
	if len(got.Entries) != len(tbl.Entries) || len(got.Contexts) != len(tbl.Contexts) {
		t.Fatalf("size mismatch: %v vs %v", got, tbl)
	}
	for i := range tbl.Entries {
		want, have := tbl.Entries[i], got.Entries[i]
		if want != have {
			t.Errorf("entry %d: expected %+v, got %+v", i, want, have)
		}
	}
	for _, name := range []string{"ro.boot.x", "ro.debuggable", "foo", "persist.sys.x"} {
		w, _ := tbl.LookupContext(name)
		g, _ := got.LookupContext(name)
		if w != g {
			t.Errorf("Lookup(%s): %s vs %s", name, w, g)
		}
	}

	t.Run("Corrupt", func(t *testing.T) {
		for _, mutate := range []func([]byte){
			func(b []byte) { b[0] ^= 0xff },
			func(b []byte) { le.PutUint32(b[4:], 2) },
			func(b []byte) { le.PutUint32(b[8:], 1) },
			func(b []byte) { le.PutUint32(b[12:], 1<<20) },
			func(b []byte) { le.PutUint32(b[indexHeaderSize:], uint32(len(b)+10)) },
		} {
			bad := append([]byte(nil), b...)
			mutate(bad)
			if err := (&Table{}).UnmarshalBinary(bad); err == nil {
				t.Error("expected error for corrupt index")
			}
		}
		if err := (&Table{}).UnmarshalBinary(b[:10]); err == nil {
			t.Error("expected error for truncated index")
		}
	})
}
