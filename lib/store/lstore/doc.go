// Package lstore implements the system property store on top of shared
// memory property areas. SystemProperties exposes both the handle based API
// used by property readers and the property service (Find, Read,
// ReadCallback, Add, Update, WaitProp, Foreach) and the name based
// store.IStore interface (Get, Set, Delete, List, Wait, Serial, GetAreaInfo).
//
// Key Features:
//   - Lock free reads following the per property seqlock protocol
//   - Routing of names to areas in legacy, split and serialized layouts
//   - Global serial published after every change, for waiting on any property
//   - Optional cross-process writer lock on the area file (lockmgr)
//   - Optional on-disk storage of persist.* properties (persist)
//
// Implementation Details:
//
//   - Set: a short value replaces the old one in place. Long values (only
//     allowed for ro.* names) can not be updated, so the property is deleted
//     and added again. The new value is validated before anything is removed.
//
//   - Wait: waiting by name watches the global serial and re-checks the
//     property on every change, so properties that do not exist yet, or that
//     are deleted and added again, are noticed as well.
//
//   - Access: properties in areas the process can not read are reported as
//     not found by Get and skipped by List and Foreach.
//
// Thread Safety:
//
//	Reads are lock free and may run concurrently with writers in this or any
//	other process. Writers of one SystemProperties are serialised with a
//	mutex. Writers in different processes must either be the single property
//	service or enable Config.WriterLock.
//
// Usage Example:
//
//	// Property service: create the areas and publish values
//	sp := lstore.New(lstore.DefaultConfig())
//	if _, err := sp.AreaInit("", []string{"/system/etc/selinux/plat_property_contexts"}); err != nil {
//		return err
//	}
//	err := sp.Set("sys.boot_completed", "1")
//
//	// Reader: map the existing areas and wait for the value
//	props, err := lstore.Open(lstore.DefaultConfig())
//	serial, ok, err := props.Wait("sys.boot_completed", 0, 10*time.Second)
package lstore
