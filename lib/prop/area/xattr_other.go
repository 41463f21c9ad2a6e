//go:build unix && !linux

package area

import "golang.org/x/sys/unix"

// SELinux labels only exist on linux.
func setLabel(int, string) error {
	return unix.ENOTSUP
}
