package contexts

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Entry maps a name prefix (or an exact name) to a context.
type Entry struct {
	Prefix  string
	Context int // index into Table.Contexts
	Exact   bool
}

// Table is the ordered routing table. Exact entries come first, prefixes are
// kept longest first with "*" always last. Among prefixes of equal length the
// one added first wins.
//
// Thread-safety: a Table must not be modified once it is shared.
type Table struct {
	Contexts []string
	Entries  []Entry
}

// Add inserts an entry, registering the context if it is new.
func (t *Table) Add(prefix, context string, exact bool) error {
	if prefix == "" {
		return fmt.Errorf("empty prefix for context %s", context)
	}
	if err := validContext(context); err != nil {
		return err
	}
	idx := t.contextIndex(context)
	if idx < 0 {
		idx = len(t.Contexts)
		t.Contexts = append(t.Contexts, context)
	}
	e := Entry{Prefix: prefix, Context: idx, Exact: exact}

	pos := len(t.Entries)
	for i, cur := range t.Entries {
		if exact {
			if !cur.Exact {
				pos = i
				break
			}
			continue
		}
		if cur.Exact {
			continue
		}
		if len(cur.Prefix) < len(prefix) || strings.HasPrefix(cur.Prefix, "*") {
			pos = i
			break
		}
	}
	t.Entries = append(t.Entries, Entry{})
	copy(t.Entries[pos+1:], t.Entries[pos:])
	t.Entries[pos] = e
	return nil
}

// Lookup returns the context index serving name, or -1.
func (t *Table) Lookup(name string) int {
	for _, e := range t.Entries {
		if e.Exact {
			if e.Prefix == name {
				return e.Context
			}
			continue
		}
		if strings.HasPrefix(e.Prefix, "*") || strings.HasPrefix(name, e.Prefix) {
			return e.Context
		}
	}
	return -1
}

// LookupContext returns the context string serving name.
func (t *Table) LookupContext(name string) (string, bool) {
	if i := t.Lookup(name); i >= 0 {
		return t.Contexts[i], true
	}
	return "", false
}

func (t *Table) contextIndex(context string) int {
	for i, c := range t.Contexts {
		if c == context {
			return i
		}
	}
	return -1
}

// validContext rejects contexts that can not be used as a file name.
func validContext(context string) error {
	if context == "" || context == "." || context == ".." || strings.ContainsAny(context, "/\x00") {
		return fmt.Errorf("invalid context %q", context)
	}
	return nil
}

// --------------------------------------------------------------------------
// property_contexts Parser
// --------------------------------------------------------------------------

// Parse reads property_contexts lines from r into t.
//
// Each line holds "<prefix> <context> [exact|prefix] [type ...]". Blank lines
// and lines starting with '#' are skipped, as are "ctl." entries, which
// describe control messages and not properties.
func (t *Table) Parse(r io.Reader) error {
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			Logger.Warningf("line %d: expected a prefix and a context, ignoring %q", lineNo, line)
			continue
		}
		if strings.HasPrefix(fields[0], "ctl.") {
			continue
		}
		exact := len(fields) > 2 && fields[2] == "exact"
		if err := t.Add(fields[0], fields[1], exact); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	return sc.Err()
}

// ParseFile is Parse for a file on disk.
func (t *Table) ParseFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := t.Parse(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// LoadTable parses all given property_contexts files. The first file must be
// readable; later ones are optional and skipped when missing.
func LoadTable(files []string) (*Table, error) {
	t := &Table{}
	for i, f := range files {
		if err := t.ParseFile(f); err != nil {
			if i == 0 {
				return nil, err
			}
			Logger.Debugf("skipping %s: %v", f, err)
		}
	}
	if len(t.Entries) == 0 {
		return nil, fmt.Errorf("no property contexts found in %v", files)
	}
	return t, nil
}
