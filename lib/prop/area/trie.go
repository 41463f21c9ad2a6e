package area

import (
	"bytes"
	"strings"
	"sync/atomic"

	"github.com/ValentinKolb/sysprop/lib/store"
)

// --------------------------------------------------------------------------
// Name Validation
// --------------------------------------------------------------------------

// ValidName checks a property name before anything is allocated for it.
// Names are non empty, dot separated, without empty segments and without NUL.
func ValidName(name string) error {
	switch {
	case name == "":
		return store.NewError(store.RetCInvalidName, "empty property name")
	case len(name) > MaxNameLen:
		return store.Errorf(store.RetCInvalidName, "property name of %d bytes exceeds %d", len(name), MaxNameLen)
	case strings.IndexByte(name, 0) >= 0:
		return store.Errorf(store.RetCInvalidName, "property name %q contains NUL", name)
	}
	for _, seg := range strings.Split(name, ".") {
		if seg == "" {
			return store.Errorf(store.RetCInvalidName, "property name %q has an empty segment", name)
		}
	}
	return nil
}

// cmpName orders sibling names: shorter names first, then bytewise.
func cmpName(a, b []byte) int {
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return bytes.Compare(a, b)
	}
}

// --------------------------------------------------------------------------
// Trie Operations
// --------------------------------------------------------------------------

// Find returns the property with the given name or nil.
func (a *Area) Find(name string) *PropInfo {
	if ValidName(name) != nil {
		return nil
	}
	n, ok, _ := a.findNode(name, false)
	if !ok {
		return nil
	}
	return a.infoAt(a.dataWord(n + nodeProp).Load())
}

// Add inserts a new property. Values of PropValueMax bytes or more are stored
// out of line and are only accepted for read-only ("ro.") names.
func (a *Area) Add(name, value string) (*PropInfo, error) {
	if !a.writable {
		return nil, store.ErrReadOnly
	}
	if err := ValidName(name); err != nil {
		return nil, err
	}
	if strings.IndexByte(value, 0) >= 0 {
		return nil, store.Errorf(store.RetCInvalidValue, "value of %s contains NUL", name)
	}
	if len(value) >= PropValueMax && !IsReadOnly(name) {
		return nil, store.Errorf(store.RetCValueTooLong, "value of %d bytes for %s exceeds %d", len(value), name, PropValueMax-1)
	}

	n, _, err := a.findNode(name, true)
	if err != nil {
		return nil, err
	}
	prop := a.dataWord(n + nodeProp)
	if prop.Load() != 0 {
		return nil, store.Errorf(store.RetCExists, "property %s already exists", name)
	}
	off, err := a.newInfo(name, value)
	if err != nil {
		return nil, err
	}
	prop.Store(off)
	return &PropInfo{area: a, off: off}, nil
}

// Update replaces the value of pi in place. Only short values fit and long
// properties can not be updated; delete and re-add them instead.
func (a *Area) Update(pi *PropInfo, value string) (uint32, error) {
	if !a.writable {
		return 0, store.ErrReadOnly
	}
	if pi == nil || pi.area != a {
		return 0, store.NewError(store.RetCInvalidOperation, "property does not belong to this area")
	}
	if strings.IndexByte(value, 0) >= 0 {
		return 0, store.NewError(store.RetCInvalidValue, "value contains NUL")
	}
	if len(value) >= PropValueMax {
		return 0, store.Errorf(store.RetCValueTooLong, "value of %d bytes exceeds %d", len(value), PropValueMax-1)
	}
	if pi.IsLong() {
		return 0, store.NewError(store.RetCValueTooLong, "long property can not be updated in place")
	}
	if pi.CounterExhausted() {
		return 0, store.NewError(store.RetCInvalidOperation, "write counter exhausted, property must be added again")
	}

	lock := pi.lock()
	oldLen := min(SerialValueLen(lock.word.Load()), PropValueMax-1)
	slot := pi.valueSlot()
	backup := a.data(dirtyBackupOffset, PropValueMax)
	copy(backup, slot[:oldLen])
	backup[oldLen] = 0

	serial := lock.write(len(value), func() {
		copy(slot, value)
		slot[len(value)] = 0
	})
	return serial, nil
}

// Fits reports whether the arena has room left for a new info holding name
// and value, overflow buffer included. Nodes are not counted, so the answer is
// exact only for names whose trie path already exists.
func (a *Area) Fits(name, value string) bool {
	need := uint64(align4(infoHeaderSize + uint32(len(name)) + 1))
	if len(value) >= PropValueMax {
		need += uint64(align4(uint32(len(value)) + 1))
	}
	return uint64(a.BytesUsed())+need <= uint64(a.Capacity())
}

// Delete detaches the property from its node. The memory of the info stays
// allocated. With prune set, subtrees left without any property are detached
// as well.
func (a *Area) Delete(name string, prune bool) (bool, error) {
	if !a.writable {
		return false, store.ErrReadOnly
	}
	if err := ValidName(name); err != nil {
		return false, err
	}
	n, ok, err := a.findNode(name, false)
	if err != nil || !ok {
		return false, err
	}
	prop := a.dataWord(n + nodeProp)
	if prop.Load() == 0 {
		return false, nil
	}
	prop.Store(0)
	if prune {
		a.prune(0, a.maxNodes())
	}
	return true, nil
}

// Foreach calls fn for every property in the area, in trie order, until fn
// returns false.
func (a *Area) Foreach(fn func(pi *PropInfo) bool) {
	budget := a.maxNodes()
	a.walk(0, fn, &budget)
}

// Count returns the number of properties in the area.
func (a *Area) Count() int {
	n := 0
	a.Foreach(func(*PropInfo) bool {
		n++
		return true
	})
	return n
}

// --------------------------------------------------------------------------
// Internal Helpers
// --------------------------------------------------------------------------

// maxNodes bounds every traversal so a corrupt area can not loop forever.
func (a *Area) maxNodes() int {
	return int(a.Capacity()/nodeHeaderSize) + 1
}

// findNode walks the trie segment by segment starting at the root node.
func (a *Area) findNode(name string, alloc bool) (uint32, bool, error) {
	cur := uint32(0)
	rest := []byte(name)
	for {
		seg := rest
		i := bytes.IndexByte(rest, '.')
		if i >= 0 {
			seg, rest = rest[:i], rest[i+1:]
		}
		next, ok, err := a.findSibling(a.dataWord(cur+nodeChildren), seg, alloc)
		if err != nil || !ok {
			return 0, false, err
		}
		cur = next
		if i < 0 {
			return cur, true, nil
		}
	}
}

// findSibling searches the sibling tree hanging off link for seg. Missing
// nodes are created and linked when alloc is set.
func (a *Area) findSibling(link *atomic.Uint32, seg []byte, alloc bool) (uint32, bool, error) {
	for steps := a.maxNodes(); steps > 0; steps-- {
		off := link.Load()
		if off == 0 {
			if !alloc {
				return 0, false, nil
			}
			n, err := a.newNode(seg)
			if err != nil {
				return 0, false, err
			}
			link.Store(n)
			return n, true, nil
		}
		name, ok := a.nodeName(off)
		if !ok {
			return 0, false, store.Errorf(store.RetCAreaUnavailable, "corrupt trie node at %d", off)
		}
		switch c := cmpName(seg, name); {
		case c == 0:
			return off, true, nil
		case c < 0:
			link = a.dataWord(off + nodeLeft)
		default:
			link = a.dataWord(off + nodeRight)
		}
	}
	return 0, false, store.NewError(store.RetCAreaUnavailable, "trie contains a cycle")
}

func (a *Area) nodeName(off uint32) ([]byte, bool) {
	if off%4 != 0 || !a.inBounds(off, nodeHeaderSize) {
		return nil, false
	}
	n := native.Uint32(a.data(off+nodeNameLen, 4))
	if !a.inBounds(off+nodeName, n) {
		return nil, false
	}
	return a.data(off+nodeName, n), true
}

func (a *Area) newNode(seg []byte) (uint32, error) {
	off, err := a.Allocate(nodeHeaderSize + uint32(len(seg)) + 1)
	if err != nil {
		return 0, err
	}
	native.PutUint32(a.data(off+nodeNameLen, 4), uint32(len(seg)))
	copy(a.data(off+nodeName, uint32(len(seg))), seg)
	return off, nil
}

func (a *Area) newInfo(name, value string) (uint32, error) {
	off, err := a.Allocate(infoHeaderSize + uint32(len(name)) + 1)
	if err != nil {
		return 0, err
	}
	slot := a.data(off+infoValue, PropValueMax)
	var serial uint32
	if len(value) >= PropValueMax {
		long, err := a.Allocate(uint32(len(value)) + 1)
		if err != nil {
			return 0, err
		}
		copy(a.data(long, uint32(len(value))), value)
		copy(slot, longErrorMessage)
		native.PutUint32(a.data(off+infoLongOffset, 4), long-off)
		serial = uint32(len(longErrorMessage))<<24 | LongFlag
	} else {
		copy(slot, value)
		serial = uint32(len(value)) << 24
	}
	copy(a.data(off+infoName, uint32(len(name))), name)
	a.dataWord(off + infoSerial).Store(serial)
	return off, nil
}

func (a *Area) infoAt(off uint32) *PropInfo {
	if off == 0 || off%4 != 0 || !a.inBounds(off, infoHeaderSize) {
		return nil
	}
	return &PropInfo{area: a, off: off}
}

func (a *Area) prune(off uint32, depth int) bool {
	if depth <= 0 {
		return false
	}
	empty := true
	for _, field := range [...]uint32{nodeChildren, nodeLeft, nodeRight} {
		w := a.dataWord(off + field)
		child := w.Load()
		if child == 0 {
			continue
		}
		if _, ok := a.nodeName(child); ok && a.prune(child, depth-1) {
			w.Store(0)
		} else {
			empty = false
		}
	}
	return empty && a.dataWord(off+nodeProp).Load() == 0
}

func (a *Area) walk(off uint32, fn func(*PropInfo) bool, budget *int) bool {
	if *budget <= 0 {
		return false
	}
	*budget--
	if l := a.dataWord(off + nodeLeft).Load(); l != 0 {
		if _, ok := a.nodeName(l); ok && !a.walk(l, fn, budget) {
			return false
		}
	}
	if pi := a.infoAt(a.dataWord(off + nodeProp).Load()); pi != nil && !fn(pi) {
		return false
	}
	if c := a.dataWord(off + nodeChildren).Load(); c != 0 {
		if _, ok := a.nodeName(c); ok && !a.walk(c, fn, budget) {
			return false
		}
	}
	if r := a.dataWord(off + nodeRight).Load(); r != 0 {
		if _, ok := a.nodeName(r); ok && !a.walk(r, fn, budget) {
			return false
		}
	}
	return true
}
