package domain

import (
	"errors"
	"fmt"
)

// Adapter errors - 檔案系統層錯誤
var (
	// ErrNotFound indicates the requested path does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates the path already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrPermissionDenied indicates insufficient permissions
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotDirectory indicates expected a directory but got a file
	ErrNotDirectory = errors.New("not a directory")

	// ErrNotFile indicates expected a file but got a directory
	ErrNotFile = errors.New("not a file")

	// ErrDirectoryNotEmpty indicates a plain delete was attempted on a populated directory
	ErrDirectoryNotEmpty = errors.New("directory not empty")
)

// Sync errors - 同步邏輯層錯誤
var (
	// ErrSourceMissing indicates a source entry vanished before it could be read
	ErrSourceMissing = errors.New("source missing")

	// ErrCopyFailed indicates a file copy failed for a reason other than a missing source
	ErrCopyFailed = errors.New("copy failed")

	// ErrDeleteFailed indicates a destination entry could not be removed
	ErrDeleteFailed = errors.New("delete failed")

	// ErrMkdirFailed indicates a destination directory could not be created
	ErrMkdirFailed = errors.New("directory creation failed")

	// ErrCompareFailed indicates two files could not be read for comparison
	ErrCompareFailed = errors.New("compare failed")

	// ErrListFailed indicates a directory could not be enumerated
	ErrListFailed = errors.New("list failed")

	// ErrTreesOverlap indicates one pass root lies inside the other
	ErrTreesOverlap = errors.New("source and destination overlap")

	// ErrSyncInProgress indicates another pass holds the destination lock
	ErrSyncInProgress = errors.New("sync already in progress")
)

// Config errors - 設定檔錯誤
var (
	// ErrConfigNotFound indicates config file not found
	ErrConfigNotFound = errors.New("config file not found")

	// ErrConfigInvalid indicates config file is malformed
	ErrConfigInvalid = errors.New("invalid config")
)

// EntryError records a failure on a single entry of a pass.
// Kind is one of the sync sentinel errors above and Err is the underlying cause.
type EntryError struct {
	Kind error
	Path string
	Err  error
}

// NewEntryError wraps err as a failure of kind on path
func NewEntryError(kind error, path string, err error) *EntryError {
	return &EntryError{Kind: kind, Path: path, Err: err}
}

func (e *EntryError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Path)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As
func (e *EntryError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
