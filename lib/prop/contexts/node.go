package contexts

import (
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/sysprop/lib/prop/area"
)

// node is one context and its lazily mapped area.
//
// Thread-safety: the area pointer is published atomically, mu only guards
// the first open.
type node struct {
	context  string
	file     string
	mu       sync.Mutex
	pa       atomic.Pointer[area.Area]
	noAccess atomic.Bool
}

func newNode(context, file string) *node {
	return &node{context: context, file: file}
}

// get returns the mapped area, mapping it on first use. It returns nil if the
// file is not accessible.
func (n *node) get(opts *Options) *area.Area {
	if a := n.pa.Load(); a != nil {
		return a
	}
	if n.noAccess.Load() {
		return nil
	}
	if !readable(n.file) {
		n.noAccess.Store(true)
		return nil
	}
	a, err := n.open(opts)
	if err != nil {
		Logger.Warningf("failed to map %s: %v", n.file, err)
		n.noAccess.Store(true)
		return nil
	}
	return a
}

// open maps the existing area file.
func (n *node) open(opts *Options) (*area.Area, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if a := n.pa.Load(); a != nil {
		return a, nil
	}
	a, err := area.Map(n.file, area.MapOptions{
		Writable:         opts.Writable,
		RequireRootOwner: opts.RequireRootOwner,
	})
	if err != nil {
		return nil, err
	}
	n.pa.Store(a)
	return a, nil
}

// create makes a fresh area file for the context.
func (n *node) create(size int) (labelFailed bool, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	a, labelFailed, err := area.MapRW(n.file, n.context, size)
	if err != nil {
		return labelFailed, err
	}
	n.pa.Store(a)
	return labelFailed, nil
}

// resetAccess re-evaluates whether the file is readable and drops the
// mapping when it no longer is.
func (n *node) resetAccess() {
	if readable(n.file) {
		n.noAccess.Store(false)
		return
	}
	n.unmap()
	n.noAccess.Store(true)
}

func (n *node) unmap() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if a := n.pa.Swap(nil); a != nil {
		if err := a.Close(); err != nil {
			Logger.Warningf("%v", err)
		}
	}
}
