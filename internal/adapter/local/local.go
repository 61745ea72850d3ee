package local

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/afero"

	"github.com/Ning0612/Mirrorsync/internal/adapter"
	"github.com/Ning0612/Mirrorsync/internal/domain"
)

const (
	dirPerm  = 0755
	filePerm = 0644
)

// Adapter implements adapter.Filesystem on top of an afero.Fs
type Adapter struct {
	fs afero.Fs
}

var _ adapter.Filesystem = (*Adapter)(nil)

// New creates an adapter over fs
func New(fs afero.Fs) *Adapter {
	return &Adapter{fs: fs}
}

// NewOS creates an adapter over the host filesystem
func NewOS() *Adapter {
	return New(afero.NewOsFs())
}

// Fs returns the underlying afero filesystem
func (a *Adapter) Fs() afero.Fs {
	return a.fs
}

// List returns the direct children of path sorted by name
func (a *Adapter) List(ctx context.Context, path string) ([]domain.FileInfo, error) {
	info, err := a.fs.Stat(path)
	if err != nil {
		return nil, a.mapError(err)
	}
	if !info.IsDir() {
		return nil, domain.ErrNotDirectory
	}

	entries, err := afero.ReadDir(a.fs, path)
	if err != nil {
		return nil, a.mapError(err)
	}

	result := make([]domain.FileInfo, 0, len(entries))
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		result = append(result, a.fileInfoFromOS(filepath.Join(path, entry.Name()), entry))
	}

	return result, nil
}

// Read opens a file for reading
func (a *Adapter) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	info, err := a.fs.Stat(path)
	if err != nil {
		return nil, a.mapError(err)
	}
	if info.IsDir() {
		return nil, domain.ErrNotFile
	}

	file, err := a.fs.Open(path)
	if err != nil {
		return nil, a.mapError(err)
	}

	return file, nil
}

// Write creates or overwrites a file with the bytes of r
func (a *Adapter) Write(ctx context.Context, path string, r io.Reader) (int64, error) {
	// Create parent directories
	if err := a.fs.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return 0, a.mapError(err)
	}

	// Write to a uniquely named temp file first for atomic operation.
	// A leftover temp file is an ordinary extraneous entry for the next pass.
	file, err := afero.TempFile(a.fs, filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return 0, a.mapError(err)
	}
	tempPath := file.Name()

	n, copyErr := io.Copy(file, r)
	closeErr := file.Close()

	if copyErr != nil {
		a.fs.Remove(tempPath)
		return n, a.mapError(copyErr)
	}
	if closeErr != nil {
		a.fs.Remove(tempPath)
		return n, a.mapError(closeErr)
	}
	if err := a.fs.Chmod(tempPath, filePerm); err != nil {
		a.fs.Remove(tempPath)
		return n, a.mapError(err)
	}

	if err := a.fs.Rename(tempPath, path); err != nil {
		a.fs.Remove(tempPath)
		return n, a.mapError(err)
	}

	return n, nil
}

// Delete removes a file, symlink or empty directory.
// Symlinks are removed themselves, never followed.
func (a *Adapter) Delete(ctx context.Context, path string) error {
	info, err := a.lstat(path)
	if err != nil {
		return a.mapError(err)
	}
	if info.Mode().IsDir() {
		entries, err := afero.ReadDir(a.fs, path)
		if err != nil {
			return a.mapError(err)
		}
		if len(entries) > 0 {
			return domain.ErrDirectoryNotEmpty
		}
	}

	return a.mapError(a.fs.Remove(path))
}

// Stat returns metadata for a single path
func (a *Adapter) Stat(ctx context.Context, path string) (domain.FileInfo, error) {
	info, err := a.fs.Stat(path)
	if err != nil {
		return domain.FileInfo{}, a.mapError(err)
	}

	return a.fileInfoFromOS(path, info), nil
}

// Mkdir creates a directory and any necessary parents
func (a *Adapter) Mkdir(ctx context.Context, path string) error {
	return a.mapError(a.fs.MkdirAll(path, dirPerm))
}

// Exists checks if a path exists
func (a *Adapter) Exists(ctx context.Context, path string) (bool, error) {
	_, err := a.fs.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, a.mapError(err)
}

// lstat describes path without following a final symlink when fs supports it
func (a *Adapter) lstat(path string) (os.FileInfo, error) {
	if l, ok := a.fs.(afero.Lstater); ok {
		info, _, err := l.LstatIfPossible(path)
		return info, err
	}
	return a.fs.Stat(path)
}

// fileInfoFromOS converts os.FileInfo to domain.FileInfo
func (a *Adapter) fileInfoFromOS(path string, info os.FileInfo) domain.FileInfo {
	fileType := domain.FileTypeOther
	switch mode := info.Mode(); {
	case mode.IsDir():
		fileType = domain.FileTypeDirectory
	case mode&os.ModeSymlink != 0:
		fileType = domain.FileTypeSymlink
	case mode.IsRegular():
		fileType = domain.FileTypeRegular
	}

	return domain.FileInfo{
		Name:    info.Name(),
		Path:    path,
		Type:    fileType,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
}

// mapError converts OS errors to domain errors while keeping the cause
func (a *Adapter) mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case os.IsNotExist(err):
		return wrap(domain.ErrNotFound, err)
	case os.IsPermission(err):
		return wrap(domain.ErrPermissionDenied, err)
	case os.IsExist(err):
		return wrap(domain.ErrAlreadyExists, err)
	case errors.Is(err, syscall.ENOTDIR):
		return wrap(domain.ErrNotDirectory, err)
	case errors.Is(err, syscall.ENOTEMPTY):
		return wrap(domain.ErrDirectoryNotEmpty, err)
	}

	// Directory not empty on platforms without ENOTEMPTY mapping
	var pathErr *os.PathError
	if errors.As(err, &pathErr) && strings.Contains(pathErr.Err.Error(), "not empty") {
		return wrap(domain.ErrDirectoryNotEmpty, err)
	}

	return err
}

func wrap(kind, cause error) error {
	return &mappedError{kind: kind, cause: cause}
}

// mappedError matches both the domain kind and the OS cause
type mappedError struct {
	kind  error
	cause error
}

func (e *mappedError) Error() string {
	return e.cause.Error()
}

func (e *mappedError) Unwrap() []error {
	return []error{e.kind, e.cause}
}
