// Package persist keeps persist.* properties on disk so they survive a
// restart of the property service.
//
// Every property is stored in its own file named after the property, the
// file content being the raw value. Writes are handed to a single background
// writer through a lock-free queue, so setting a property never waits for
// the disk.
package persist

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ValentinKolb/sysprop/lib/store"
	"github.com/ValentinKolb/sysprop/lib/util"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("persist")

// Prefix marks properties that are persisted.
const Prefix = "persist."

// IsPersistent reports whether name is stored on disk.
func IsPersistent(name string) bool {
	return strings.HasPrefix(name, Prefix)
}

type op struct {
	name   string
	value  string
	remove bool
	flush  chan struct{}
}

// Store writes persistent properties to a directory.
//
// Thread-safety: all methods are safe for concurrent use.
type Store struct {
	dir   string
	queue *util.LockFreeMPSC[op]
	done  chan struct{}
}

// Open creates the directory if needed and starts the background writer.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create persistent property directory: %w", err)
	}
	s := &Store{
		dir:   dir,
		queue: util.NewLockFreeMPSC[op](),
		done:  make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// Dir returns the directory holding the property files.
func (s *Store) Dir() string { return s.dir }

// Write queues the value of a persistent property. Non persistent names are ignored.
func (s *Store) Write(name, value string) error {
	if err := s.check(name); err != nil {
		return err
	}
	if !s.queue.Push(&op{name: name, value: value}) {
		return store.NewError(store.RetCInvalidOperation, "persistent property store is closed")
	}
	return nil
}

// Remove queues the removal of a persistent property.
func (s *Store) Remove(name string) error {
	if err := s.check(name); err != nil {
		return err
	}
	if !s.queue.Push(&op{name: name, remove: true}) {
		return store.NewError(store.RetCInvalidOperation, "persistent property store is closed")
	}
	return nil
}

// Flush blocks until every operation queued by the calling goroutine is on disk.
func (s *Store) Flush() {
	ch := make(chan struct{})
	if !s.queue.Push(&op{flush: ch}) {
		<-s.done
		return
	}
	select {
	case <-ch:
	case <-s.done:
	}
}

// Close stops the writer after the queue has been drained.
func (s *Store) Close() error {
	s.queue.Close()
	<-s.done
	return nil
}

// Load reads every persistent property from disk and passes it to set.
// Unreadable files are logged and skipped. It returns the number of
// properties handed to set without error.
func (s *Store) Load(set func(name, value string) error) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list persistent properties: %w", err)
	}
	loaded := 0
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || !IsPersistent(name) {
			continue
		}
		value, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			Logger.Warningf("failed to read persistent property %s: %v", name, err)
			continue
		}
		if err := set(name, string(value)); err != nil {
			Logger.Warningf("failed to restore persistent property %s: %v", name, err)
			continue
		}
		loaded++
	}
	Logger.Infof("restored %d persistent properties from %s", loaded, s.dir)
	return loaded, nil
}

// --------------------------------------------------------------------------
// Background Writer
// --------------------------------------------------------------------------

func (s *Store) run() {
	defer close(s.done)
	for o := range s.queue.Recv() {
		switch {
		case o.flush != nil:
			close(o.flush)
		case o.remove:
			if err := os.Remove(filepath.Join(s.dir, o.name)); err != nil && !os.IsNotExist(err) {
				Logger.Errorf("failed to remove persistent property %s: %v", o.name, err)
			}
		default:
			if err := s.writeFile(o.name, o.value); err != nil {
				Logger.Errorf("failed to persist %s: %v", o.name, err)
			}
		}
	}
}

// writeFile replaces the file of a property atomically.
func (s *Store) writeFile(name, value string) error {
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(s.dir, name))
}

func (s *Store) check(name string) error {
	if !IsPersistent(name) {
		return store.Errorf(store.RetCInvalidOperation, "%s is not a persistent property", name)
	}
	if strings.ContainsAny(name, "/\x00") || name != filepath.Base(name) {
		return store.Errorf(store.RetCInvalidName, "%s can not be stored as a file", name)
	}
	return nil
}
