package lstore

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/sysprop/lib/lockmgr"
	"github.com/ValentinKolb/sysprop/lib/prop/area"
	"github.com/ValentinKolb/sysprop/lib/prop/contexts"
	"github.com/ValentinKolb/sysprop/lib/store"
	"github.com/ValentinKolb/sysprop/lib/store/persist"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("sysprop")

// SystemProperties is the process wide view of the system properties. It
// routes names to areas, reads values with the seqlock protocol and, when
// allowed to write, publishes every change on the global serial.
//
// Thread-safety: reads are lock free and safe for concurrent use. Writes of
// one instance are serialised by a mutex; writes from other processes are
// only serialised when Config.WriterLock is set.
type SystemProperties struct {
	config      Config
	contexts    *contexts.Contexts
	initialized atomic.Bool
	writeMu     sync.Mutex
	locks       lockmgr.ILockManager
	persist     *persist.Store
}

// New creates an uninitialised instance. Call Init or AreaInit before use.
func New(config Config) *SystemProperties {
	if config.AreaSize == 0 {
		config.AreaSize = area.DefaultSize
	}
	return &SystemProperties{config: config}
}

// Open creates an instance and initialises it for the areas at config.Path.
func Open(config Config) (*SystemProperties, error) {
	sp := New(config)
	if err := sp.Init(""); err != nil {
		return nil, err
	}
	return sp, nil
}

// Config returns the configuration in use.
func (sp *SystemProperties) Config() Config { return sp.config }

// Contexts returns the router, nil before initialisation.
func (sp *SystemProperties) Contexts() *contexts.Contexts { return sp.contexts }

// --------------------------------------------------------------------------
// Initialisation
// --------------------------------------------------------------------------

// Init maps the existing areas at path (config.Path when empty). Calling it
// again on an initialised instance re-checks which areas are accessible.
func (sp *SystemProperties) Init(path string) error {
	sp.writeMu.Lock()
	defer sp.writeMu.Unlock()

	if sp.initialized.Load() {
		sp.contexts.ResetAccess()
		return nil
	}
	if path != "" {
		sp.config.Path = path
	}
	c, err := contexts.New(sp.config.Path, sp.config.contextOptions())
	if err != nil {
		return err
	}
	if err := sp.setupWriters(); err != nil {
		c.FreeAndUnmap()
		return err
	}
	sp.contexts = c
	sp.initialized.Store(true)
	Logger.Debugf("initialised %s properties at %s", c.Mode(), sp.config.Path)
	return nil
}

// AreaInit creates a fresh set of areas at path (config.Path when empty) for
// the given property_contexts files (config.ContextFiles when empty) and
// opens them for writing. The boolean reports that labelling an area file
// with its SELinux context failed.
func (sp *SystemProperties) AreaInit(path string, contextFiles []string) (bool, error) {
	sp.writeMu.Lock()
	defer sp.writeMu.Unlock()

	if sp.initialized.Load() {
		return false, store.NewError(store.RetCInvalidOperation, "properties are already initialised")
	}
	if path != "" {
		sp.config.Path = path
	}
	if len(contextFiles) > 0 {
		sp.config.ContextFiles = contextFiles
	}
	sp.config.Writable = true

	c, labelFailed, err := contexts.Create(sp.config.Path, sp.config.contextOptions())
	if err != nil {
		return labelFailed, err
	}
	if err := sp.setupWriters(); err != nil {
		c.FreeAndUnmap()
		return labelFailed, err
	}
	sp.contexts = c
	sp.initialized.Store(true)
	return labelFailed, nil
}

func (sp *SystemProperties) setupWriters() error {
	if sp.config.WriterLock {
		sp.locks = lockmgr.NewLockManager()
	}
	if sp.config.PersistDir != "" {
		p, err := persist.Open(sp.config.PersistDir)
		if err != nil {
			return err
		}
		sp.persist = p
	}
	return nil
}

// LoadPersistent restores the persist.* properties stored on disk.
func (sp *SystemProperties) LoadPersistent() (int, error) {
	if sp.persist == nil {
		return 0, nil
	}
	return sp.persist.Load(func(name, value string) error {
		return sp.set(name, value, false)
	})
}

// FlushPersistent waits until queued persistent writes of the caller are on disk.
func (sp *SystemProperties) FlushPersistent() {
	if sp.persist != nil {
		sp.persist.Flush()
	}
}

// Close unmaps every area. PropInfo handles obtained before must not be used afterwards.
func (sp *SystemProperties) Close() error {
	sp.writeMu.Lock()
	defer sp.writeMu.Unlock()

	if !sp.initialized.Swap(false) {
		return nil
	}
	sp.contexts.FreeAndUnmap()
	if sp.persist != nil {
		if err := sp.persist.Close(); err != nil {
			return err
		}
		sp.persist = nil
	}
	return nil
}

// --------------------------------------------------------------------------
// Handle Based API
// --------------------------------------------------------------------------

// Find returns the property with the given name, or nil if it does not exist
// or is not accessible.
func (sp *SystemProperties) Find(name string) *area.PropInfo {
	a, err := sp.areaFor(name)
	if err != nil {
		return nil
	}
	return a.Find(name)
}

// Read returns the value of pi as seen by legacy readers: long values read as
// an error message telling the reader to use ReadCallback.
func (sp *SystemProperties) Read(pi *area.PropInfo) (value string, serial uint32) {
	value, serial, retries := pi.ReadLegacy()
	readsTotal.Inc()
	readRetriesTotal.Add(retries)
	return value, serial
}

// ReadCallback reads the full value of pi and passes it to fn. Read-only
// properties never change once set, so they are read from a single checked
// copy when possible.
func (sp *SystemProperties) ReadCallback(pi *area.PropInfo, fn func(name, value string, serial uint32)) {
	readsTotal.Inc()
	name := pi.Name()
	if area.IsReadOnly(name) {
		if value, serial, ok := pi.ReadFast(); ok {
			fn(name, value, serial)
			return
		}
	}
	value, serial, retries := pi.Read()
	readRetriesTotal.Add(retries)
	fn(name, value, serial)
}

// Add creates a new property. It fails with ErrExists if the property is already set.
func (sp *SystemProperties) Add(name, value string) error {
	return sp.write(name, func(a *area.Area) (bool, error) {
		if _, err := a.Add(name, value); err != nil {
			return false, err
		}
		addsTotal.Inc()
		return true, nil
	})
}

// Update replaces the value of an existing short property in place. A
// read-only property whose write counter is exhausted is refused; Set re-adds it.
func (sp *SystemProperties) Update(pi *area.PropInfo, value string) error {
	if pi == nil {
		return store.NewError(store.RetCInvalidOperation, "update of a nil property")
	}
	return sp.write(pi.Name(), func(a *area.Area) (bool, error) {
		if _, err := a.Update(pi, value); err != nil {
			return false, err
		}
		updatesTotal.Inc()
		return true, nil
	})
}

// AreaSerial returns the global serial, which changes with every mutation.
func (sp *SystemProperties) AreaSerial() uint32 {
	if !sp.initialized.Load() {
		return 0
	}
	if sa := sp.contexts.GetSerialPropArea(); sa != nil {
		return sa.Serial()
	}
	return 0
}

// WaitAny blocks until the global serial differs from old and returns it.
func (sp *SystemProperties) WaitAny(old uint32) uint32 {
	s, _ := sp.WaitProp(nil, old, 0)
	return s
}

// WaitProp blocks until the serial of pi (the global serial when pi is nil)
// differs from old or the timeout expires. A timeout <= 0 waits forever.
func (sp *SystemProperties) WaitProp(pi *area.PropInfo, old uint32, timeout time.Duration) (uint32, bool) {
	waitsTotal.Inc()
	if pi != nil {
		return pi.Wait(old, timeout)
	}
	sa := sp.serialArea()
	if sa == nil {
		return 0, false
	}
	return sa.WaitSerial(old, timeout)
}

// FindNth returns the n-th property in iteration order, or nil.
func (sp *SystemProperties) FindNth(n int) *area.PropInfo {
	var found *area.PropInfo
	i := 0
	_ = sp.Foreach(func(pi *area.PropInfo) bool {
		if i == n {
			found = pi
			return false
		}
		i++
		return true
	})
	return found
}

// Foreach calls fn for every accessible property until fn returns false.
func (sp *SystemProperties) Foreach(fn func(pi *area.PropInfo) bool) error {
	if !sp.initialized.Load() {
		return store.ErrNotInitialized
	}
	sp.contexts.ForEach(fn)
	return nil
}

// --------------------------------------------------------------------------
// Internal Helpers
// --------------------------------------------------------------------------

// areaFor routes name to its area. Access errors are counted and logged.
func (sp *SystemProperties) areaFor(name string) (*area.Area, error) {
	if !sp.initialized.Load() {
		return nil, store.ErrNotInitialized
	}
	a, err := sp.contexts.GetPropAreaForName(name)
	if err != nil {
		if errors.Is(err, store.ErrAccessDenied) {
			accessDeniedTotal.Inc()
			Logger.Warningf("%v", err)
		}
		return nil, err
	}
	return a, nil
}

func (sp *SystemProperties) serialArea() *area.Area {
	if !sp.initialized.Load() {
		return nil
	}
	return sp.contexts.GetSerialPropArea()
}

// write runs fn on the area serving name while holding the writer locks and
// publishes the change on the global serial when fn reports one.
func (sp *SystemProperties) write(name string, fn func(a *area.Area) (changed bool, err error)) error {
	if !sp.initialized.Load() {
		return store.ErrNotInitialized
	}
	if err := area.ValidName(name); err != nil {
		return err
	}
	unlock, err := sp.lockWriter(name)
	if err != nil {
		return err
	}
	defer unlock()

	a, err := sp.areaFor(name)
	if err != nil {
		return err
	}
	changed, err := fn(a)
	if errors.Is(err, store.ErrAreaFull) {
		areaFullTotal.Inc()
		Logger.Errorf("failed to write %s: %v", name, err)
	}
	if changed {
		if sa := sp.contexts.GetSerialPropArea(); sa != nil && sa.Writable() {
			sa.BumpSerial()
		}
	}
	return err
}

// lockWriter takes the in-process writer mutex and, if configured, the
// cross-process lock on the area file of name.
func (sp *SystemProperties) lockWriter(name string) (func(), error) {
	sp.writeMu.Lock()
	if sp.locks == nil {
		return sp.writeMu.Unlock, nil
	}
	file, err := sp.contexts.FileForName(name)
	if err != nil {
		sp.writeMu.Unlock()
		return nil, err
	}
	ok, owner, err := sp.locks.AcquireLock(file, uint64(sp.config.LockTimeout.Milliseconds()))
	if err != nil || !ok {
		sp.writeMu.Unlock()
		if err == nil {
			err = store.ErrLockNotAcquirable
		}
		return nil, fmt.Errorf("writer lock on %s: %w", file, err)
	}
	return func() {
		if _, err := sp.locks.ReleaseLock(file, owner); err != nil {
			Logger.Warningf("failed to release writer lock on %s: %v", file, err)
		}
		sp.writeMu.Unlock()
	}, nil
}
