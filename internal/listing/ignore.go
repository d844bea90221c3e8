// Package listing snapshots the build tree and produces the directory listings
// consumed by autoindex pages and the post-render generators.
package listing

import (
	"path"
	"strings"
)

// DefaultIgnore hides dotfiles and dot-directories.
var DefaultIgnore = []string{".*"}

// Matcher applies glob-style ignore patterns (path.Match syntax).
//
// A pattern ending in "/" only matches directories. A pattern containing a
// "/" elsewhere is matched against the output-relative path; any other pattern
// is matched against the entry's base name.
type Matcher struct {
	patterns []pattern
}

type pattern struct {
	glob    string
	dirOnly bool
	rooted  bool
}

// NewMatcher compiles patterns. Empty patterns are skipped.
func NewMatcher(patterns []string) Matcher {
	m := Matcher{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		dirOnly := strings.HasSuffix(p, "/")
		p = strings.Trim(p, "/")
		if p == "" {
			continue
		}
		m.patterns = append(m.patterns, pattern{glob: p, dirOnly: dirOnly, rooted: strings.Contains(p, "/")})
	}
	return m
}

// Match reports whether the entry at output-relative path rel is ignored.
func (m Matcher) Match(rel string, isDir bool) bool {
	rel = strings.Trim(rel, "/")
	name := path.Base(rel)
	for _, p := range m.patterns {
		if p.dirOnly && !isDir {
			continue
		}
		subject := name
		if p.rooted {
			subject = rel
		}
		if ok, err := path.Match(p.glob, subject); err == nil && ok {
			return true
		}
	}
	return false
}

// Len returns the number of compiled patterns.
func (m Matcher) Len() int { return len(m.patterns) }
