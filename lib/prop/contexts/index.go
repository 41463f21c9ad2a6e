package contexts

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
)

// IndexFileName is the name of the compiled index inside a property directory.
const IndexFileName = "property_info"

// Compiled index layout. All integers are little endian u32, string offsets
// are absolute file offsets of NUL terminated strings.
//
//	header   magic | version | size | n_contexts | contexts_off | n_entries | entries_off | reserved
//	contexts n_contexts x name_off
//	entries  n_entries x (name_off | context_index | flags)
//	strings
const (
	indexMagic      uint32 = 0x58444950 // "PIDX"
	indexVersion    uint32 = 1
	indexHeaderSize        = 32
	indexEntrySize         = 12

	flagExact uint32 = 1
)

var le = binary.LittleEndian

// MarshalBinary encodes the table in the compiled index format. Entries keep
// their routing order.
func (t *Table) MarshalBinary() ([]byte, error) {
	contextsOff := uint32(indexHeaderSize)
	entriesOff := contextsOff + 4*uint32(len(t.Contexts))
	stringsOff := entriesOff + indexEntrySize*uint32(len(t.Entries))

	var strs bytes.Buffer
	offsets := map[string]uint32{}
	intern := func(s string) uint32 {
		if off, ok := offsets[s]; ok {
			return off
		}
		off := stringsOff + uint32(strs.Len())
		strs.WriteString(s)
		strs.WriteByte(0)
		offsets[s] = off
		return off
	}

	buf := make([]byte, stringsOff)
	for i, c := range t.Contexts {
		le.PutUint32(buf[contextsOff+4*uint32(i):], intern(c))
	}
	for i, e := range t.Entries {
		if e.Context < 0 || e.Context >= len(t.Contexts) {
			return nil, fmt.Errorf("entry %q references unknown context %d", e.Prefix, e.Context)
		}
		p := buf[entriesOff+indexEntrySize*uint32(i):]
		le.PutUint32(p[0:], intern(e.Prefix))
		le.PutUint32(p[4:], uint32(e.Context))
		var flags uint32
		if e.Exact {
			flags |= flagExact
		}
		le.PutUint32(p[8:], flags)
	}
	buf = append(buf, strs.Bytes()...)

	le.PutUint32(buf[0:], indexMagic)
	le.PutUint32(buf[4:], indexVersion)
	le.PutUint32(buf[8:], uint32(len(buf)))
	le.PutUint32(buf[12:], uint32(len(t.Contexts)))
	le.PutUint32(buf[16:], contextsOff)
	le.PutUint32(buf[20:], uint32(len(t.Entries)))
	le.PutUint32(buf[24:], entriesOff)
	return buf, nil
}

// UnmarshalBinary decodes a compiled index, validating every offset.
func (t *Table) UnmarshalBinary(b []byte) error {
	if len(b) < indexHeaderSize {
		return fmt.Errorf("index of %d bytes is smaller than its header", len(b))
	}
	if m := le.Uint32(b[0:]); m != indexMagic {
		return fmt.Errorf("bad index magic %#x", m)
	}
	if v := le.Uint32(b[4:]); v != indexVersion {
		return fmt.Errorf("unsupported index version %d", v)
	}
	if s := le.Uint32(b[8:]); uint64(s) != uint64(len(b)) {
		return fmt.Errorf("index size %d does not match file size %d", s, len(b))
	}
	nContexts, contextsOff := le.Uint32(b[12:]), le.Uint32(b[16:])
	nEntries, entriesOff := le.Uint32(b[20:]), le.Uint32(b[24:])
	if uint64(contextsOff)+4*uint64(nContexts) > uint64(len(b)) ||
		uint64(entriesOff)+indexEntrySize*uint64(nEntries) > uint64(len(b)) {
		return fmt.Errorf("index tables exceed the file")
	}

	str := func(off uint32) (string, error) {
		if uint64(off) >= uint64(len(b)) {
			return "", fmt.Errorf("string offset %d out of range", off)
		}
		end := bytes.IndexByte(b[off:], 0)
		if end < 0 {
			return "", fmt.Errorf("unterminated string at %d", off)
		}
		return string(b[off : off+uint32(end)]), nil
	}

	out := Table{
		Contexts: make([]string, 0, nContexts),
		Entries:  make([]Entry, 0, nEntries),
	}
	for i := uint32(0); i < nContexts; i++ {
		c, err := str(le.Uint32(b[contextsOff+4*i:]))
		if err != nil {
			return err
		}
		if err := validContext(c); err != nil {
			return err
		}
		out.Contexts = append(out.Contexts, c)
	}
	for i := uint32(0); i < nEntries; i++ {
		p := b[entriesOff+indexEntrySize*i:]
		prefix, err := str(le.Uint32(p[0:]))
		if err != nil {
			return err
		}
		ctx := le.Uint32(p[4:])
		if ctx >= nContexts {
			return fmt.Errorf("entry %q references unknown context %d", prefix, ctx)
		}
		out.Entries = append(out.Entries, Entry{Prefix: prefix, Context: int(ctx), Exact: le.Uint32(p[8:])&flagExact != 0})
	}
	*t = out
	return nil
}

// LoadIndex reads a compiled index file.
func LoadIndex(path string) (*Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t := &Table{}
	if err := t.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// WriteIndex writes t to path atomically.
func WriteIndex(t *Table, path string) error {
	b, err := t.MarshalBinary()
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0444); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Compile parses the given property_contexts files and writes the compiled index to out.
func Compile(files []string, out string) (*Table, error) {
	t, err := LoadTable(files)
	if err != nil {
		return nil, err
	}
	if err := WriteIndex(t, out); err != nil {
		return nil, err
	}
	return t, nil
}
