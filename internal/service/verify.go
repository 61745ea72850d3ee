package service

import (
	"context"
	"fmt"

	"github.com/Ning0612/Mirrorsync/internal/adapter"
	"github.com/Ning0612/Mirrorsync/internal/core/checksum"
	"github.com/Ning0612/Mirrorsync/internal/core/ignore"
)

// VerifyReport describes how far a destination tree is from mirroring its source
type VerifyReport struct {
	Source      string
	Destination string
	Checked     int
	checksum.Difference
}

// OK reports whether the destination mirrors the source exactly
func (r *VerifyReport) OK() bool {
	return r.Empty()
}

// Verify compares the content digests of both trees.
// Entries excluded by matcher are ignored on both sides.
func Verify(ctx context.Context, fs adapter.Filesystem, source, destination string, matcher *ignore.Matcher) (*VerifyReport, error) {
	calc := checksum.NewDefaultCalculator()

	srcManifest, err := checksum.BuildManifest(ctx, fs, calc, checksum.SHA256, source, matcher.Match)
	if err != nil {
		return nil, fmt.Errorf("source manifest: %w", err)
	}
	dstManifest, err := checksum.BuildManifest(ctx, fs, calc, checksum.SHA256, destination, matcher.Match)
	if err != nil {
		return nil, fmt.Errorf("destination manifest: %w", err)
	}

	return &VerifyReport{
		Source:      source,
		Destination: destination,
		Checked:     len(srcManifest),
		Difference:  checksum.Compare(srcManifest, dstManifest),
	}, nil
}

// Verify checks the service's destination against its source
func (s *MirrorService) Verify(ctx context.Context) (*VerifyReport, error) {
	return Verify(ctx, s.fs, s.config.Source, s.config.Destination, s.matcher)
}
