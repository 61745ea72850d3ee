package checksum

import (
	"context"
	"fmt"
	"path"
	"sort"

	"github.com/Ning0612/Mirrorsync/internal/adapter"
)

// Entry is one path of a tree manifest
type Entry struct {
	// Dir is true for directories, which carry no digest
	Dir    bool
	Digest string
	Size   int64
}

// Manifest maps slash-separated paths relative to a tree root to entries
type Manifest map[string]Entry

// Paths returns the manifest paths in sorted order
func (m Manifest) Paths() []string {
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Skipper reports whether a relative path should be left out of a manifest
type Skipper func(rel string, isDir bool) bool

// BuildManifest digests every file under root
func BuildManifest(ctx context.Context, fs adapter.Filesystem, calc Calculator, algo Algorithm, root string, skip Skipper) (Manifest, error) {
	m := Manifest{}
	if err := walk(ctx, fs, calc, algo, root, "", skip, m); err != nil {
		return nil, err
	}
	return m, nil
}

func walk(ctx context.Context, fs adapter.Filesystem, calc Calculator, algo Algorithm, dir, rel string, skip Skipper, m Manifest) error {
	entries, err := fs.List(ctx, dir)
	if err != nil {
		return fmt.Errorf("list %s: %w", dir, err)
	}

	for _, e := range entries {
		childRel := path.Join(rel, e.Name)
		if skip != nil && skip(childRel, e.IsDir()) {
			continue
		}

		if e.IsDir() {
			m[childRel] = Entry{Dir: true}
			if err := walk(ctx, fs, calc, algo, e.Path, childRel, skip, m); err != nil {
				return err
			}
			continue
		}

		reader, err := fs.Read(ctx, e.Path)
		if err != nil {
			return fmt.Errorf("open %s: %w", e.Path, err)
		}
		digest, err := calc.Calculate(ctx, reader, algo)
		reader.Close()
		if err != nil {
			return fmt.Errorf("digest %s: %w", e.Path, err)
		}

		m[childRel] = Entry{Digest: digest, Size: e.Size}
	}

	return nil
}

// Difference lists how a destination manifest deviates from a source manifest
type Difference struct {
	// Missing paths exist in source only
	Missing []string
	// Extra paths exist in destination only
	Extra []string
	// Mismatched paths exist on both sides with different kind or content
	Mismatched []string
}

// Empty reports whether both manifests describe the same tree
func (d Difference) Empty() bool {
	return len(d.Missing) == 0 && len(d.Extra) == 0 && len(d.Mismatched) == 0
}

// Compare computes the difference of dst against src
func Compare(src, dst Manifest) Difference {
	var d Difference
	for _, p := range src.Paths() {
		dstEntry, ok := dst[p]
		if !ok {
			d.Missing = append(d.Missing, p)
			continue
		}
		if srcEntry := src[p]; srcEntry != dstEntry {
			d.Mismatched = append(d.Mismatched, p)
		}
	}
	for _, p := range dst.Paths() {
		if _, ok := src[p]; !ok {
			d.Extra = append(d.Extra, p)
		}
	}
	return d
}
