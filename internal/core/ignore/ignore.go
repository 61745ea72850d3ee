package ignore

import (
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// Matcher decides which entries of a synchronized tree are excluded.
// Excluded entries are neither copied to nor deleted from the destination.
type Matcher struct {
	patterns []string
	ignore   *gitignore.GitIgnore
}

// New compiles gitignore-style patterns. Blank lines and comments are dropped.
func New(patterns ...string) *Matcher {
	var lines []string
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		lines = append(lines, p)
	}

	m := &Matcher{patterns: lines}
	if len(lines) > 0 {
		m.ignore = gitignore.CompileIgnoreLines(lines...)
	}
	return m
}

// Patterns returns the compiled patterns
func (m *Matcher) Patterns() []string {
	if m == nil {
		return nil
	}
	return m.patterns
}

// Empty reports whether the matcher excludes nothing
func (m *Matcher) Empty() bool {
	return m == nil || m.ignore == nil
}

// Match reports whether rel, a path relative to the tree root, is excluded.
// Directories are also tried with a trailing slash so "build/" patterns apply.
func (m *Matcher) Match(rel string, isDir bool) bool {
	if m.Empty() {
		return false
	}

	rel = filepath.ToSlash(rel)
	if m.ignore.MatchesPath(rel) {
		return true
	}
	return isDir && m.ignore.MatchesPath(rel+"/")
}
