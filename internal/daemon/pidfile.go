package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	// ErrNotRunning is returned when no live daemon owns the PID file
	ErrNotRunning = errors.New("daemon is not running")

	// ErrAlreadyRunning is returned by Write when another live process owns the PID file
	ErrAlreadyRunning = errors.New("daemon is already running")
)

// PIDFile manages the daemon process ID file
type PIDFile struct {
	path string
}

// NewPIDFile creates a new PID file manager
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{path: path}
}

// Path returns the PID file location
func (p *PIDFile) Path() string {
	return p.path
}

// Write records the current process ID, creating the parent directory.
// A file left behind by a dead process is replaced.
func (p *PIDFile) Write() error {
	if pid, err := p.Read(); err == nil {
		if pid != os.Getpid() && isProcessRunning(pid) {
			return fmt.Errorf("%w: PID %d (%s)", ErrAlreadyRunning, pid, p.path)
		}
		if pid == os.Getpid() {
			return fmt.Errorf("%w: PID file %s already written by this process", ErrAlreadyRunning, p.path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return fmt.Errorf("failed to create PID directory: %w", err)
	}

	// 先寫入暫存檔再改名，避免讀到半份內容
	tmp := p.path + ".tmp"
	content := strconv.Itoa(os.Getpid()) + "\n"
	if err := os.WriteFile(tmp, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	return nil
}

// Read reads the PID from the PID file.
// A missing file yields ErrNotRunning.
func (p *PIDFile) Read() (int, error) {
	content, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%w: no PID file at %s", ErrNotRunning, p.path)
		}
		return 0, fmt.Errorf("failed to read PID file: %w", err)
	}

	pidStr := strings.TrimSpace(string(content))
	pid, err := strconv.Atoi(pidStr)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid PID in file %s: %q", p.path, pidStr)
	}

	return pid, nil
}

// Remove removes the PID file
func (p *PIDFile) Remove() error {
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

// IsRunning checks if the process in the PID file is running
func (p *PIDFile) IsRunning() (bool, error) {
	pid, err := p.Read()
	if err != nil {
		if errors.Is(err, ErrNotRunning) {
			return false, nil
		}
		return false, err
	}

	return isProcessRunning(pid), nil
}

// Stop asks the daemon recorded in the PID file to shut down and returns its PID.
// A stale file is removed and reported as ErrNotRunning.
func (p *PIDFile) Stop() (int, error) {
	pid, err := p.Read()
	if err != nil {
		return 0, err
	}

	if !isProcessRunning(pid) {
		p.Remove()
		return pid, fmt.Errorf("%w: stale PID %d", ErrNotRunning, pid)
	}

	return pid, terminateProcess(pid)
}
