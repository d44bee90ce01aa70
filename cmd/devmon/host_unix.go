//go:build unix

package main

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// hostLabel identifies the machine in reports, e.g. "build-01 (Linux 6.8.0)".
func hostLabel() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return ""
	}
	return fmt.Sprintf("%s (%s %s)",
		unix.ByteSliceToString(uts.Nodename[:]),
		unix.ByteSliceToString(uts.Sysname[:]),
		unix.ByteSliceToString(uts.Release[:]))
}
