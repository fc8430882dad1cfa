package steps

import (
	"fmt"
	"path"

	"github.com/gobwas/glob"
)

// DefaultIgnorePatterns are never copied into a build or a package.
var DefaultIgnorePatterns = []string{
	".*",
	"Thumbs.db",
	"*.scss",
	"*.sass",
}

// Ignore matches slash-separated relative paths against glob patterns.
// A pattern without a slash also matches the base name.
type Ignore struct {
	patterns []string
	globs    []glob.Glob
}

// NewIgnore compiles patterns with '/' as the separator, so "*" stays within
// one path segment and "**" crosses segments.
func NewIgnore(patterns ...string) (*Ignore, error) {
	ig := &Ignore{}
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("ignore pattern %q: %w", p, err)
		}
		ig.patterns = append(ig.patterns, p)
		ig.globs = append(ig.globs, g)
	}
	return ig, nil
}

// DefaultIgnore returns an Ignore for DefaultIgnorePatterns.
func DefaultIgnore() *Ignore {
	ig, err := NewIgnore(DefaultIgnorePatterns...)
	if err != nil {
		panic(err)
	}
	return ig
}

// With returns a copy that also matches extra patterns.
func (ig *Ignore) With(extra ...string) (*Ignore, error) {
	return NewIgnore(append(append([]string(nil), ig.patterns...), extra...)...)
}

// Match reports whether rel should be ignored.
func (ig *Ignore) Match(rel string) bool {
	if ig == nil {
		return false
	}
	base := path.Base(rel)
	for _, g := range ig.globs {
		if g.Match(rel) || g.Match(base) {
			return true
		}
	}
	return false
}

// Patterns returns the source patterns.
func (ig *Ignore) Patterns() []string {
	return append([]string(nil), ig.patterns...)
}
