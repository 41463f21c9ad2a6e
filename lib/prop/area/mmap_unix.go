//go:build unix

package area

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ValentinKolb/sysprop/lib/store"
	"golang.org/x/sys/unix"
)

// WorkspaceEnv names the environment variable carrying "<fd>,<size>" of an
// inherited legacy area.
const WorkspaceEnv = "ANDROID_PROPERTY_WORKSPACE"

// MapOptions control how an existing area file is mapped.
type MapOptions struct {
	// Writable maps the area read-write so properties can be changed in place.
	Writable bool
	// RequireRootOwner rejects files not owned by root:root or writable by group or others.
	RequireRootOwner bool
}

// MapRW creates a new area file, labels it with the given SELinux context and
// maps it read-write. The file must not exist yet. A failed label is reported
// through the boolean and is not an error.
func MapRW(path, context string, size int) (a *Area, labelFailed bool, err error) {
	if size < HeaderSize+initialBytesUsed {
		return nil, false, store.Errorf(store.RetCAreaUnavailable, "area size %d is too small", size)
	}
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_EXCL|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0444)
	if err != nil {
		return nil, false, fmt.Errorf("%w: create %s: %w", store.ErrAreaUnavailable, path, err)
	}
	defer unix.Close(fd)

	if context != "" {
		if err := setLabel(fd, context); err != nil {
			Logger.Warningf("failed to set context (%s) for %q: %v", context, path, err)
			labelFailed = true
		}
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		return nil, labelFailed, fmt.Errorf("%w: truncate %s: %w", store.ErrAreaUnavailable, path, err)
	}
	mem, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, labelFailed, fmt.Errorf("%w: mmap %s: %w", store.ErrAreaUnavailable, path, err)
	}
	if a, err = Format(mem); err != nil {
		_ = unix.Munmap(mem)
		return nil, labelFailed, err
	}
	a.path = path
	a.release = unix.Munmap
	return a, labelFailed, nil
}

// Map maps an existing area file and validates its header.
func Map(path string, opts MapOptions) (*Area, error) {
	flags := unix.O_CLOEXEC | unix.O_NOFOLLOW | unix.O_RDONLY
	if opts.Writable {
		flags = unix.O_CLOEXEC | unix.O_NOFOLLOW | unix.O_RDWR
	}
	fd, err := unix.Open(path, flags, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", store.ErrAreaUnavailable, path, err)
	}
	defer unix.Close(fd)
	return mapFD(fd, path, opts)
}

// MapFD maps the area behind an already open descriptor. fd is not closed.
func MapFD(fd int, opts MapOptions) (*Area, error) {
	return mapFD(fd, "fd:"+strconv.Itoa(fd), opts)
}

// MapFromEnv maps the legacy area whose descriptor was inherited through WorkspaceEnv.
func MapFromEnv(opts MapOptions) (*Area, error) {
	v := os.Getenv(WorkspaceEnv)
	if v == "" {
		return nil, store.Errorf(store.RetCAreaUnavailable, "%s is not set", WorkspaceEnv)
	}
	fdStr, _, _ := strings.Cut(v, ",")
	fd, err := strconv.Atoi(fdStr)
	if err != nil || fd < 0 {
		return nil, store.Errorf(store.RetCAreaUnavailable, "malformed %s=%q", WorkspaceEnv, v)
	}
	return MapFD(fd, opts)
}

// NewAnonymous maps a shared anonymous area of the given size. It is visible
// to this process only, plus children forked with it.
func NewAnonymous(size int) (*Area, error) {
	if size < HeaderSize+initialBytesUsed {
		return nil, store.Errorf(store.RetCAreaUnavailable, "area size %d is too small", size)
	}
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap anonymous: %w", store.ErrAreaUnavailable, err)
	}
	a, err := Format(mem)
	if err != nil {
		_ = unix.Munmap(mem)
		return nil, err
	}
	a.release = unix.Munmap
	return a, nil
}

func mapFD(fd int, path string, opts MapOptions) (*Area, error) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return nil, fmt.Errorf("%w: stat %s: %w", store.ErrAreaUnavailable, path, err)
	}
	if opts.RequireRootOwner && (st.Uid != 0 || st.Gid != 0 || uint32(st.Mode)&(unix.S_IWGRP|unix.S_IWOTH) != 0) {
		return nil, store.Errorf(store.RetCAreaUnavailable, "%s must be owned by root and not writable by group or others", path)
	}
	if st.Size < HeaderSize {
		return nil, store.Errorf(store.RetCAreaUnavailable, "%s is smaller than an area header", path)
	}
	prot := unix.PROT_READ
	if opts.Writable {
		prot |= unix.PROT_WRITE
	}
	mem, err := unix.Mmap(fd, 0, int(st.Size), prot, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap %s: %w", store.ErrAreaUnavailable, path, err)
	}
	a, err := Open(mem, opts.Writable)
	if err != nil {
		_ = unix.Munmap(mem)
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	a.path = path
	a.release = unix.Munmap
	return a, nil
}
