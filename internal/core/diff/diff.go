package diff

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Ning0612/Mirrorsync/internal/adapter"
	"github.com/Ning0612/Mirrorsync/internal/domain"
)

// DefaultBufferSize is the chunk size used when streaming two files side by side
const DefaultBufferSize = 32 * 1024

// Errors returned by Equal name the side that could not be opened
var (
	ErrSourceUnreadable      = errors.New("open source")
	ErrDestinationUnreadable = errors.New("open destination")
)

// Comparer decides whether a destination file already matches its source
type Comparer interface {
	// Equal reports whether src and dst hold identical bytes
	Equal(ctx context.Context, fs adapter.Filesystem, src, dst domain.FileInfo) (bool, error)
}

// ContentComparer compares files byte for byte.
// Sizes are checked first; equal sizes are streamed in chunks and compared,
// so no file is ever decoded as text or loaded whole into memory.
type ContentComparer struct {
	bufferSize int
}

// NewContentComparer creates a comparer with the default chunk size
func NewContentComparer() *ContentComparer {
	return &ContentComparer{bufferSize: DefaultBufferSize}
}

// NewContentComparerSize creates a comparer with a custom chunk size
func NewContentComparerSize(bufferSize int) *ContentComparer {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &ContentComparer{bufferSize: bufferSize}
}

// Equal implements the Comparer interface
func (c *ContentComparer) Equal(ctx context.Context, fs adapter.Filesystem, src, dst domain.FileInfo) (bool, error) {
	if !src.IsFile() || !dst.IsFile() {
		return false, nil
	}
	if src.Size != dst.Size {
		return false, nil
	}

	srcReader, err := fs.Read(ctx, src.Path)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
	}
	defer srcReader.Close()

	dstReader, err := fs.Read(ctx, dst.Path)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrDestinationUnreadable, err)
	}
	defer dstReader.Close()

	return c.equalReaders(ctx, srcReader, dstReader)
}

// equalReaders streams both readers and stops at the first differing chunk
func (c *ContentComparer) equalReaders(ctx context.Context, a, b io.Reader) (bool, error) {
	bufA := make([]byte, c.bufferSize)
	bufB := make([]byte, c.bufferSize)

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		default:
		}

		nA, errA := io.ReadFull(a, bufA)
		nB, errB := io.ReadFull(b, bufB)

		if errA != nil && errA != io.EOF && errA != io.ErrUnexpectedEOF {
			return false, fmt.Errorf("read source: %w", errA)
		}
		if errB != nil && errB != io.EOF && errB != io.ErrUnexpectedEOF {
			return false, fmt.Errorf("read destination: %w", errB)
		}

		if nA != nB || !bytes.Equal(bufA[:nA], bufB[:nB]) {
			return false, nil
		}

		// A short read on both sides means both reached the end together
		if errA != nil || errB != nil {
			return errA != nil && errB != nil, nil
		}
	}
}
