package lockmgr

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sys/unix"
)

var Logger = logger.GetLogger("lockmgr")

// pollInterval is the pause between two non-blocking lock attempts.
const pollInterval = time.Millisecond

type heldLock struct {
	fd      int
	ownerID []byte
}

type flockMgr struct {
	held *xsync.MapOf[string, heldLock]
}

// NewLockManager creates a lock manager whose keys are file paths.
func NewLockManager() ILockManager {
	return &flockMgr{
		held: xsync.NewMapOf[string, heldLock](),
	}
}

func (lm *flockMgr) AcquireLock(key string, timeout uint64) (bool, []byte, error) {
	// 256 byte random owner id
	ownerID, err := generateOwnerID()
	if err != nil {
		return false, nil, err
	}

	fd, err := unix.Open(key, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return false, nil, fmt.Errorf("failed to open lock file %s: %w", key, err)
	}

	deadline := time.Now().Add(time.Duration(timeout) * time.Millisecond)
	for {
		err = unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			break
		}
		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EINTR) {
			_ = unix.Close(fd)
			return false, nil, fmt.Errorf("failed to lock %s: %w", key, err)
		}
		if !time.Now().Before(deadline) {
			_ = unix.Close(fd)
			return false, nil, nil
		}
		time.Sleep(pollInterval)
	}

	lm.held.Store(key, heldLock{fd: fd, ownerID: ownerID})
	return true, ownerID, nil
}

func (lm *flockMgr) ReleaseLock(key string, ownerID []byte) (bool, error) {
	var (
		released heldLock
		owned    bool
		exists   bool
	)
	lm.held.Compute(key, func(cur heldLock, loaded bool) (heldLock, bool) {
		exists = loaded
		if !loaded {
			return cur, true
		}
		if !bytes.Equal(cur.ownerID, ownerID) {
			return cur, false
		}
		released, owned = cur, true
		return cur, true
	})

	if !exists {
		return true, nil
	}
	if !owned {
		return false, nil
	}

	// closing the descriptor drops the flock as well
	if err := unix.Flock(released.fd, unix.LOCK_UN); err != nil {
		Logger.Warningf("failed to unlock %s: %v", key, err)
	}
	if err := unix.Close(released.fd); err != nil {
		return false, fmt.Errorf("failed to close lock file %s: %w", key, err)
	}
	return true, nil
}
