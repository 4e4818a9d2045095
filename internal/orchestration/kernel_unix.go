//go:build unix

package orchestration

import "golang.org/x/sys/unix"

// kernelRelease returns the running kernel's release, as `uname -r` prints it.
func kernelRelease() string {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return "unknown"
	}
	return unix.ByteSliceToString(u.Release[:])
}
