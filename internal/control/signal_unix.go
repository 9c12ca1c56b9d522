//go:build unix

package control

import (
	"errors"

	"golang.org/x/sys/unix"
)

func sendTerm(pid int) error {
	return unix.Kill(pid, unix.SIGTERM)
}

// probe uses signal 0: ESRCH means gone, EPERM means it exists but is not ours.
func probe(pid int) (bool, error) {
	err := unix.Kill(pid, 0)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, unix.ESRCH):
		return false, nil
	case errors.Is(err, unix.EPERM):
		return true, nil
	default:
		return true, err
	}
}
