package adapter

import (
	"context"
	"io"

	"github.com/Ning0612/Mirrorsync/internal/domain"
)

// Filesystem defines the operations a pass performs against a tree.
// Paths are full paths on the underlying filesystem; implementations
// return domain-level errors for consistent error handling.
type Filesystem interface {
	// List returns the direct children of a directory, sorted by name
	// Returns domain.ErrNotFound if path doesn't exist
	// Returns domain.ErrNotDirectory if path is a file
	List(ctx context.Context, path string) ([]domain.FileInfo, error)

	// Read opens a file for reading
	// Caller is responsible for closing the reader
	// Returns domain.ErrNotFound if file doesn't exist
	// Returns domain.ErrNotFile if path is a directory
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write creates or overwrites a file with the exact bytes of r
	// and returns the number of bytes written
	Write(ctx context.Context, path string, r io.Reader) (int64, error)

	// Delete removes a file or empty directory
	// Returns domain.ErrNotFound if path doesn't exist
	// Returns domain.ErrDirectoryNotEmpty for populated directories
	Delete(ctx context.Context, path string) error

	// Stat returns metadata for a single path
	// Returns domain.ErrNotFound if path doesn't exist
	Stat(ctx context.Context, path string) (domain.FileInfo, error)

	// Mkdir creates a directory and any necessary parents
	// No error if directory already exists
	Mkdir(ctx context.Context, path string) error

	// Exists checks if a path exists
	Exists(ctx context.Context, path string) (bool, error)
}
