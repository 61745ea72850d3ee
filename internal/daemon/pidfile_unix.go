//go:build !windows

package daemon

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// isProcessRunning checks if a process is running on Unix systems
func isProcessRunning(pid int) bool {
	// Signal 0 只檢查行程是否存在；EPERM 代表行程存在但屬於其他使用者
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}

// terminateProcess sends SIGTERM so the daemon finishes its current pass and exits
func terminateProcess(pid int) error {
	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		return fmt.Errorf("failed to signal process %d: %w", pid, err)
	}
	return nil
}
