// Package lockmgr implements the optional cross-process writer lock of the
// property store.
//
// Property areas assume a single writer. When more than one process may
// write (for example a property service plus a direct "sysprop set"), every
// mutation can be wrapped in a lock on the area file it touches.
//
// Core Functionality:
//   - Lock acquisition with a bounded wait
//   - Ownership verification through random owner IDs
//   - Safe release operations that verify ownership
//
// Implementation Approach:
//
//	Locks are advisory flock(2) locks on the area file, so they are shared
//	by every process on the machine and released by the kernel when the
//	holder dies.
//
//	- Lock Acquisition: the file is opened and locked with LOCK_EX|LOCK_NB,
//	  retrying until the timeout expires. The open descriptor is remembered
//	  together with a randomly generated owner ID.
//
//	- Safe Release: ReleaseLock only unlocks when the given owner ID matches
//	  the one handed out by AcquireLock.
//
// Thread Safety:
//
//	A lock manager is safe for concurrent use. Two goroutines of the same
//	process contend for a key just like two processes do, because every
//	acquisition uses its own open file description.
package lockmgr
