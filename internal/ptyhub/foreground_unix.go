//go:build !windows

package ptyhub

import (
	"fmt"
	"syscall"
	"unsafe"
)

// tiocgpgrp is the ioctl request number for "get the foreground process
// group of a terminal". The value differs between Linux and the BSDs
// (including macOS); both are encoded below.
const (
	tiocgpgrpLinux = 0x540F
	tiocgpgrpBSD   = 0x40047477
)

func foregroundPgid(sess *Session) (int, error) {
	fd := sess.pty.Fd()
	var pgid int32

	for _, req := range []uintptr{tiocgpgrpLinux, tiocgpgrpBSD} {
		_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, fd, req, uintptr(unsafe.Pointer(&pgid)))
		if errno == 0 {
			return int(pgid), nil
		}
	}
	return 0, fmt.Errorf("tiocgpgrp failed")
}

func foregroundProcessNameWindows(sess *Session) string {
	return ""
}
