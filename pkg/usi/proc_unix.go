//go:build unix

package usi

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// sysProcAttr isolates the child in its own process group, so signals
// delivered to the client do not reach the engines.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// killGroup kills the child's entire process group.
func killGroup(pid int) error {
	return unix.Kill(-pid, unix.SIGKILL)
}
