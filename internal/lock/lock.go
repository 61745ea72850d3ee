package lock

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/Ning0612/Mirrorsync/internal/domain"
)

const (
	lockSuffix = ".lock"
	infoSuffix = ".json"
)

// LockInfo contains metadata about the lock holder
type LockInfo struct {
	PID         int       `json:"pid"`
	Hostname    string    `json:"hostname"`
	StartTime   time.Time `json:"start_time"`
	Destination string    `json:"destination"`
}

// PassLock guards one destination tree against concurrent passes.
// It is an advisory OS file lock, so it is released automatically when the
// holding process exits and never goes stale.
type PassLock struct {
	lockPath    string
	infoPath    string
	destination string
	flock       *flock.Flock
	info        *LockInfo
}

// LockName returns the lock file base name for a destination.
// Equivalent spellings of the same directory map to the same name.
func LockName(destination string) string {
	if abs, err := filepath.Abs(destination); err == nil {
		destination = abs
	}
	sum := sha256.Sum256([]byte(filepath.Clean(destination)))
	return hex.EncodeToString(sum[:8])
}

// New creates a pass lock for destination with its files under lockDir
func New(lockDir, destination string) (*PassLock, error) {
	if lockDir == "" {
		return nil, fmt.Errorf("lock directory cannot be empty")
	}

	// Ensure lock directory exists
	if err := os.MkdirAll(lockDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	name := LockName(destination)
	lockPath := filepath.Join(lockDir, name+lockSuffix)
	return &PassLock{
		lockPath:    lockPath,
		infoPath:    filepath.Join(lockDir, name+infoSuffix),
		destination: destination,
		flock:       flock.New(lockPath),
	}, nil
}

// Path returns the lock file path
func (l *PassLock) Path() string {
	return l.lockPath
}

// TryAcquire takes the lock without waiting.
// A lock held elsewhere yields a *LockError matching domain.ErrSyncInProgress.
func (l *PassLock) TryAcquire() error {
	if l.info != nil {
		return nil // already held by this instance
	}

	locked, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", l.lockPath, err)
	}
	if !locked {
		holder, _ := l.readLockInfo()
		return &LockError{
			Holder: holder,
			Reason: "another pass is running for " + l.destination,
		}
	}

	hostname, _ := os.Hostname()
	info := &LockInfo{
		PID:         os.Getpid(),
		Hostname:    hostname,
		StartTime:   time.Now(),
		Destination: l.destination,
	}

	// Holder metadata is informational; the OS lock is authoritative
	if err := l.writeLockInfo(info); err != nil {
		l.flock.Unlock()
		return fmt.Errorf("failed to write lock info: %w", err)
	}

	l.info = info
	return nil
}

// Release releases the lock
func (l *PassLock) Release() error {
	if l.info == nil {
		return nil // Not holding lock
	}

	if err := os.Remove(l.infoPath); err != nil && !os.IsNotExist(err) {
		l.flock.Unlock()
		l.info = nil
		return fmt.Errorf("failed to remove lock info: %w", err)
	}

	l.info = nil
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock %s: %w", l.lockPath, err)
	}
	return nil
}

// Held reports whether this instance holds the lock
func (l *PassLock) Held() bool {
	return l.info != nil
}

// IsLocked checks if the lock is currently held by anyone
func (l *PassLock) IsLocked() bool {
	if l.info != nil {
		return true
	}

	probe := flock.New(l.lockPath)
	locked, err := probe.TryLock()
	if err != nil {
		return false
	}
	if locked {
		probe.Unlock()
		return false
	}
	return true
}

// GetHolder returns information about the current lock holder
func (l *PassLock) GetHolder() (*LockInfo, error) {
	if !l.IsLocked() {
		return nil, fmt.Errorf("lock is not held")
	}

	if l.info != nil {
		return l.info, nil
	}
	return l.readLockInfo()
}

// readLockInfo reads the lock information from file
func (l *PassLock) readLockInfo() (*LockInfo, error) {
	data, err := os.ReadFile(l.infoPath)
	if err != nil {
		return nil, err
	}

	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("invalid lock file format: %w", err)
	}

	return &info, nil
}

// writeLockInfo writes lock information to file
func (l *PassLock) writeLockInfo(info *LockInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(l.infoPath, data, 0644)
}

// LockError represents an error when lock cannot be acquired
type LockError struct {
	Holder *LockInfo
	Reason string
}

func (e *LockError) Error() string {
	if e.Holder != nil {
		return fmt.Sprintf("cannot acquire lock: %s (held by PID %d on %s since %s)",
			e.Reason,
			e.Holder.PID,
			e.Holder.Hostname,
			e.Holder.StartTime.Format(time.RFC3339),
		)
	}
	return fmt.Sprintf("cannot acquire lock: %s", e.Reason)
}

// Unwrap lets errors.Is match domain.ErrSyncInProgress
func (e *LockError) Unwrap() error {
	return domain.ErrSyncInProgress
}

// IsLockError checks if an error is a LockError
func IsLockError(err error) bool {
	var lockErr *LockError
	return errors.As(err, &lockErr)
}
