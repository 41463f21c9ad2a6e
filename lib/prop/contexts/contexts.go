package contexts

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ValentinKolb/sysprop/lib/prop/area"
	"github.com/ValentinKolb/sysprop/lib/store"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("contexts")

const (
	// SerialFileName is the area holding the global serial.
	SerialFileName = "properties_serial"
	// SerialContext labels the serial area.
	SerialContext = "u:object_r:properties_serial:s0"
)

// --------------------------------------------------------------------------
// Mode
// --------------------------------------------------------------------------

// Mode is the on-disk layout of the property areas.
type Mode int

const (
	PreSplit Mode = iota
	Split
	Serialized
)

func (m Mode) String() string {
	switch m {
	case PreSplit:
		return "pre-split"
	case Split:
		return "split"
	case Serialized:
		return "serialized"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// Options configure how areas are located and mapped.
type Options struct {
	// Writable maps existing areas read-write.
	Writable bool
	// RequireRootOwner rejects area files not owned by root or writable by others.
	RequireRootOwner bool
	// AreaSize is the size of areas created by Create. Zero means area.DefaultSize.
	AreaSize int
	// ContextFiles overrides the property_contexts files parsed in split mode.
	ContextFiles []string
	// Root is prepended to the default property_contexts locations.
	Root string
	// Serialize makes Create write a compiled index next to the areas.
	Serialize bool
}

func (o *Options) contextFiles() []string {
	if len(o.ContextFiles) > 0 {
		return o.ContextFiles
	}
	return DefaultContextFiles(o.Root)
}

// --------------------------------------------------------------------------
// Contexts
// --------------------------------------------------------------------------

// Contexts routes names to areas in one of the three layouts.
//
// Thread-safety: all methods except FreeAndUnmap are safe for concurrent use.
// FreeAndUnmap invalidates every area and PropInfo handed out before.
type Contexts struct {
	mode   Mode
	path   string
	opts   Options
	table  *Table
	nodes  []*node
	serial *node
	legacy *area.Area
}

// New detects the layout at path and prepares the router for an existing
// set of areas. A path that is not a directory is a legacy single area file.
func New(path string, opts Options) (*Contexts, error) {
	c := &Contexts{path: path, opts: opts}

	fi, err := os.Stat(path)
	if err != nil || !fi.IsDir() {
		c.mode = PreSplit
		if err := c.initPreSplit(); err != nil {
			return nil, err
		}
		Logger.Debugf("using legacy area %s", path)
		return c, nil
	}

	var t *Table
	if index := filepath.Join(path, IndexFileName); readable(index) {
		c.mode = Serialized
		t, err = LoadIndex(index)
	} else {
		c.mode = Split
		t, err = LoadTable(opts.contextFiles())
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrAreaUnavailable, err)
	}
	c.setTable(t)

	if _, err := c.serial.open(&c.opts); err != nil {
		return nil, err
	}
	Logger.Debugf("using %s layout in %s with %d contexts", c.mode, path, len(t.Contexts))
	return c, nil
}

// Create sets up a fresh property directory: it creates the directory, the
// serial area and one area per context. The boolean reports whether labelling
// any area file failed.
func Create(dir string, opts Options) (*Contexts, bool, error) {
	opts.Writable = true
	if opts.AreaSize == 0 {
		opts.AreaSize = area.DefaultSize
	}
	if err := os.Mkdir(dir, 0711); err != nil && !errors.Is(err, fs.ErrExist) {
		return nil, false, fmt.Errorf("%w: %w", store.ErrAreaUnavailable, err)
	}

	t, err := LoadTable(opts.contextFiles())
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", store.ErrAreaUnavailable, err)
	}
	c := &Contexts{mode: Split, path: dir, opts: opts}
	if opts.Serialize {
		if err := WriteIndex(t, filepath.Join(dir, IndexFileName)); err != nil {
			return nil, false, fmt.Errorf("%w: %w", store.ErrAreaUnavailable, err)
		}
		c.mode = Serialized
	}
	c.setTable(t)

	labelFailed, err := c.serial.create(opts.AreaSize)
	if err != nil {
		return nil, labelFailed, err
	}
	for _, n := range c.nodes {
		failed, err := n.create(opts.AreaSize)
		labelFailed = labelFailed || failed
		if err != nil {
			c.FreeAndUnmap()
			return nil, labelFailed, err
		}
	}
	Logger.Infof("created %d property areas in %s (%s)", len(c.nodes)+1, dir, c.mode)
	return c, labelFailed, nil
}

func (c *Contexts) initPreSplit() error {
	mo := area.MapOptions{Writable: c.opts.Writable, RequireRootOwner: c.opts.RequireRootOwner}
	a, err := area.Map(c.path, mo)
	if errors.Is(err, fs.ErrNotExist) {
		a, err = area.MapFromEnv(mo)
	}
	if err != nil {
		return err
	}
	c.legacy = a
	return nil
}

func (c *Contexts) setTable(t *Table) {
	c.table = t
	c.nodes = make([]*node, len(t.Contexts))
	for i, ctx := range t.Contexts {
		c.nodes[i] = newNode(ctx, filepath.Join(c.path, ctx))
	}
	c.serial = newNode(SerialContext, filepath.Join(c.path, SerialFileName))
}

// --------------------------------------------------------------------------
// Interface Methods
// --------------------------------------------------------------------------

// Mode returns the detected layout.
func (c *Contexts) Mode() Mode { return c.mode }

// Path returns the property directory or legacy file.
func (c *Contexts) Path() string { return c.path }

// Table returns the routing table, nil in pre-split mode.
func (c *Contexts) Table() *Table { return c.table }

// GetPropAreaForName returns the area serving name, mapping it if needed.
// Names without a context or whose area is not readable yield ErrAccessDenied.
func (c *Contexts) GetPropAreaForName(name string) (*area.Area, error) {
	if c.mode == PreSplit {
		if c.legacy == nil {
			return nil, store.ErrNotInitialized
		}
		return c.legacy, nil
	}
	i := c.table.Lookup(name)
	if i < 0 {
		return nil, store.Errorf(store.RetCAccessDenied, "no context for property %s", name)
	}
	a := c.nodes[i].get(&c.opts)
	if a == nil {
		return nil, store.Errorf(store.RetCAccessDenied, "access denied finding property %s in %s", name, c.nodes[i].context)
	}
	return a, nil
}

// FileForName returns the area file serving name without mapping it.
func (c *Contexts) FileForName(name string) (string, error) {
	if c.mode == PreSplit {
		return c.path, nil
	}
	i := c.table.Lookup(name)
	if i < 0 {
		return "", store.Errorf(store.RetCAccessDenied, "no context for property %s", name)
	}
	return c.nodes[i].file, nil
}

// GetSerialPropArea returns the area whose serial is the global change counter.
func (c *Contexts) GetSerialPropArea() *area.Area {
	if c.mode == PreSplit {
		return c.legacy
	}
	return c.serial.pa.Load()
}

// ForEach calls fn for every property in every accessible area until fn returns false.
func (c *Contexts) ForEach(fn func(pi *area.PropInfo) bool) {
	c.ForEachArea(func(_ string, a *area.Area) bool {
		cont := true
		a.Foreach(func(pi *area.PropInfo) bool {
			cont = fn(pi)
			return cont
		})
		return cont
	})
}

// ForEachArea calls fn for every accessible area with its context until fn returns false.
func (c *Contexts) ForEachArea(fn func(context string, a *area.Area) bool) {
	if c.mode == PreSplit {
		if c.legacy != nil {
			fn("", c.legacy)
		}
		return
	}
	for _, n := range c.nodes {
		if a := n.get(&c.opts); a != nil && !fn(n.context, a) {
			return
		}
	}
}

// ResetAccess re-checks the readability of every area file.
func (c *Contexts) ResetAccess() {
	for _, n := range c.nodes {
		n.resetAccess()
	}
}

// FreeAndUnmap unmaps every area.
func (c *Contexts) FreeAndUnmap() {
	for _, n := range c.nodes {
		n.unmap()
	}
	if c.serial != nil {
		c.serial.unmap()
	}
	if c.legacy != nil {
		if err := c.legacy.Close(); err != nil {
			Logger.Warningf("%v", err)
		}
		c.legacy = nil
	}
}
