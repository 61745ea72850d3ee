package testutil

import (
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
)

// Tree describes a directory tree: keys are slash-separated relative paths,
// a trailing "/" marks a directory, anything else is a file with the value
// as its content.
type Tree map[string]string

// WriteTree materializes tree under root on fs
func WriteTree(t *testing.T, fs afero.Fs, root string, tree Tree) {
	t.Helper()

	if err := fs.MkdirAll(root, 0755); err != nil {
		t.Fatalf("failed to create root %s: %v", root, err)
	}

	for rel, content := range tree {
		path := filepath.Join(root, filepath.FromSlash(strings.TrimSuffix(rel, "/")))
		if strings.HasSuffix(rel, "/") {
			if err := fs.MkdirAll(path, 0755); err != nil {
				t.Fatalf("failed to create dir %s: %v", path, err)
			}
			continue
		}
		if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create dir for %s: %v", path, err)
		}
		if err := afero.WriteFile(fs, path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}
}

// ReadTree walks root on fs and returns its contents in Tree form
func ReadTree(t *testing.T, fs afero.Fs, root string) Tree {
	t.Helper()

	tree := Tree{}
	err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			tree[rel+"/"] = ""
			return nil
		}

		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return err
		}
		tree[rel] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("failed to read tree %s: %v", root, err)
	}

	return tree
}

// Paths returns the sorted keys of a tree
func (tr Tree) Paths() []string {
	paths := make([]string, 0, len(tr))
	for p := range tr {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// CreateTestFileWithSize creates a file of random content of the given size
func CreateTestFileWithSize(t *testing.T, fs afero.Fs, path string, size int64) []byte {
	t.Helper()

	buf := make([]byte, size)
	rand.Read(buf)

	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir for %s: %v", path, err)
	}
	if err := afero.WriteFile(fs, path, buf, 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	return buf
}

// WaitForCondition waits for a condition to be true with timeout
func WaitForCondition(timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if condition() {
			return true
		}

		if time.Now().After(deadline) {
			return false
		}

		<-ticker.C
	}
}

// AssertEventually asserts that a condition becomes true within timeout
func AssertEventually(t *testing.T, timeout time.Duration, condition func() bool, msgAndArgs ...interface{}) {
	t.Helper()

	if !WaitForCondition(timeout, condition) {
		if len(msgAndArgs) > 0 {
			t.Fatalf("condition not met within %v: %v", timeout, msgAndArgs[0])
		} else {
			t.Fatalf("condition not met within %v", timeout)
		}
	}
}
