package local

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ning0612/Mirrorsync/internal/domain"
	"github.com/Ning0612/Mirrorsync/internal/testutil"
)

func newMemAdapter(t *testing.T, tree testutil.Tree) (*Adapter, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	testutil.WriteTree(t, fs, "/root", tree)
	return New(fs), fs
}

func TestList_SortedWithTypes(t *testing.T) {
	a, _ := newMemAdapter(t, testutil.Tree{
		"b.txt":    "b",
		"a.txt":    "aa",
		"sub/":     "",
		"sub/c":    "c",
		"z/empty/": "",
	})

	entries, err := a.List(context.Background(), "/root")
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"a.txt", "b.txt", "sub", "z"}, names)
	assert.True(t, entries[0].IsFile())
	assert.Equal(t, int64(2), entries[0].Size)
	assert.Equal(t, "/root/a.txt", entries[0].Path)
	assert.True(t, entries[2].IsDir())
}

func TestList_Errors(t *testing.T) {
	a, _ := newMemAdapter(t, testutil.Tree{"file": "x"})
	ctx := context.Background()

	_, err := a.List(ctx, "/root/missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = a.List(ctx, "/root/file")
	assert.ErrorIs(t, err, domain.ErrNotDirectory)
}

func TestReadWrite_ExactBytes(t *testing.T) {
	a, fs := newMemAdapter(t, testutil.Tree{})
	ctx := context.Background()

	payload := []byte{0x00, 0xff, 0xfe, '\r', '\n', 0x80, 'a', 0x00}
	n, err := a.Write(ctx, "/root/nested/dir/bin.dat", bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)

	r, err := a.Read(ctx, "/root/nested/dir/bin.dat")
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, payload, got)

	assert.Equal(t, testutil.Tree{
		"nested/":            "",
		"nested/dir/":        "",
		"nested/dir/bin.dat": string(payload),
	}, testutil.ReadTree(t, fs, "/root"), "temp file must not survive a write")
}

func TestWrite_Overwrites(t *testing.T) {
	a, fs := newMemAdapter(t, testutil.Tree{"f": "old content that is long"})
	ctx := context.Background()

	_, err := a.Write(ctx, "/root/f", bytes.NewReader([]byte("new")))
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, "/root/f")
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestWrite_FailedCopyLeavesTargetUntouched(t *testing.T) {
	a, fs := newMemAdapter(t, testutil.Tree{"f": "keep"})

	_, err := a.Write(context.Background(), "/root/f", failingReader{})
	require.Error(t, err)

	data, err := afero.ReadFile(fs, "/root/f")
	require.NoError(t, err)
	assert.Equal(t, "keep", string(data))

	assert.Equal(t, testutil.Tree{"f": "keep"}, testutil.ReadTree(t, fs, "/root"))
}

func TestWrite_LeavesLookalikeSiblingsAlone(t *testing.T) {
	a, fs := newMemAdapter(t, testutil.Tree{
		"a":                "old",
		"a.mirrorsync.tmp": "sibling",
		"a.tmp":            "other",
	})

	_, err := a.Write(context.Background(), "/root/a", bytes.NewReader([]byte("new")))
	require.NoError(t, err)

	assert.Equal(t, testutil.Tree{
		"a":                "new",
		"a.mirrorsync.tmp": "sibling",
		"a.tmp":            "other",
	}, testutil.ReadTree(t, fs, "/root"))
}

func TestRead_Errors(t *testing.T) {
	a, _ := newMemAdapter(t, testutil.Tree{"dir/": ""})
	ctx := context.Background()

	_, err := a.Read(ctx, "/root/nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = a.Read(ctx, "/root/dir")
	assert.ErrorIs(t, err, domain.ErrNotFile)
}

func TestDelete(t *testing.T) {
	a, fs := newMemAdapter(t, testutil.Tree{
		"f":      "x",
		"empty/": "",
		"full/x": "x",
	})
	ctx := context.Background()

	require.NoError(t, a.Delete(ctx, "/root/f"))
	require.NoError(t, a.Delete(ctx, "/root/empty"))

	err := a.Delete(ctx, "/root/full")
	assert.ErrorIs(t, err, domain.ErrDirectoryNotEmpty)

	err = a.Delete(ctx, "/root/f")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Equal(t, testutil.Tree{"full/": "", "full/x": "x"}, testutil.ReadTree(t, fs, "/root"))
}

func TestDelete_SymlinksAreNotFollowed(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "target")
	require.NoError(t, os.MkdirAll(filepath.Join(target, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "sub", "f"), []byte("x"), 0644))

	dangling := filepath.Join(root, "dangling")
	toDir := filepath.Join(root, "to-dir")
	if err := os.Symlink(filepath.Join(root, "gone"), dangling); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	require.NoError(t, os.Symlink(target, toDir))

	a := NewOS()
	ctx := context.Background()

	require.NoError(t, a.Delete(ctx, dangling))
	require.NoError(t, a.Delete(ctx, toDir), "a link to a non-empty directory is removed as a link")

	for _, p := range []string{dangling, toDir} {
		_, err := os.Lstat(p)
		assert.True(t, os.IsNotExist(err), "%s should be gone", p)
	}

	data, err := os.ReadFile(filepath.Join(target, "sub", "f"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(data), "link target must be untouched")
}

func TestMkdirExistsStat(t *testing.T) {
	a, _ := newMemAdapter(t, testutil.Tree{})
	ctx := context.Background()

	exists, err := a.Exists(ctx, "/root/a/b/c")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, a.Mkdir(ctx, "/root/a/b/c"))
	require.NoError(t, a.Mkdir(ctx, "/root/a/b/c"), "mkdir of an existing directory is not an error")

	exists, err = a.Exists(ctx, "/root/a/b/c")
	require.NoError(t, err)
	assert.True(t, exists)

	info, err := a.Stat(ctx, "/root/a/b")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, "b", info.Name)
}
