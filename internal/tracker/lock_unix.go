//go:build unix

package tracker

import "syscall"

// Signal 0 checks existence without delivering anything.
func processAlive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}
