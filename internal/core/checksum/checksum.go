package checksum

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
)

// Algorithm represents the hashing algorithm to use
type Algorithm string

const (
	// MD5 algorithm (faster, fine for content comparison)
	MD5 Algorithm = "md5"
	// SHA256 algorithm (recommended default)
	SHA256 Algorithm = "sha256"
)

// ErrTooLarge is returned when the input exceeds Options.MaxSize
var ErrTooLarge = errors.New("file size exceeds maximum")

// Options configures the checksum calculator
type Options struct {
	// MaxSize: inputs larger than this are rejected (0 = unlimited)
	MaxSize int64

	// BufferSize: size of buffer for streaming reads
	// Default: 32KB
	BufferSize int
}

// DefaultOptions returns the recommended default options.
// Verification must cover every file, so there is no size cap.
func DefaultOptions() Options {
	return Options{
		MaxSize:    0,
		BufferSize: 32 * 1024,
	}
}

// Calculator computes checksums
type Calculator interface {
	// Calculate computes a hex checksum of everything read from reader
	Calculate(ctx context.Context, reader io.Reader, algo Algorithm) (string, error)
}

// DefaultCalculator implements Calculator with streaming support
type DefaultCalculator struct {
	opts Options
}

// NewCalculator creates a new calculator with the given options
func NewCalculator(opts Options) *DefaultCalculator {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultOptions().BufferSize
	}
	return &DefaultCalculator{opts: opts}
}

// NewDefaultCalculator creates a calculator with default options
func NewDefaultCalculator() *DefaultCalculator {
	return NewCalculator(DefaultOptions())
}

// Calculate implements the Calculator interface
func (c *DefaultCalculator) Calculate(ctx context.Context, reader io.Reader, algo Algorithm) (string, error) {
	h, err := newHash(algo)
	if err != nil {
		return "", err
	}

	var limited io.Reader = reader
	if c.opts.MaxSize > 0 {
		limited = io.LimitReader(reader, c.opts.MaxSize+1)
	}

	buffer := make([]byte, c.opts.BufferSize)
	var total int64

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		n, err := limited.Read(buffer)
		if n > 0 {
			total += int64(n)
			if c.opts.MaxSize > 0 && total > c.opts.MaxSize {
				return "", fmt.Errorf("%w (%d bytes)", ErrTooLarge, c.opts.MaxSize)
			}
			h.Write(buffer[:n])
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read error: %w", err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func newHash(algo Algorithm) (hash.Hash, error) {
	switch algo {
	case MD5:
		return md5.New(), nil
	case SHA256:
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("unsupported algorithm: %s", algo)
	}
}

// IsSupported checks if the given algorithm is supported
func IsSupported(algo Algorithm) bool {
	_, err := newHash(algo)
	return err == nil
}
