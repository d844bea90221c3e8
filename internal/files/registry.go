// Package files tracks the set of output-relative paths a build guarantees to
// produce.
package files

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/noise/internal/paths"
	"git.home.luguber.info/inful/noise/internal/util/sets"
)

// Registry is an insertion-ordered set of output-relative file paths. Paths are
// stored without a leading slash. Not safe for concurrent mutation.
type Registry struct {
	set *sets.Ordered[string]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{set: sets.NewOrdered[string]()}
}

// Normalize converts p to the registry's canonical form.
func Normalize(p string) string { return paths.Clean(p) }

// Track inserts p if absent. It reports whether p was newly added.
func (r *Registry) Track(p string) bool {
	p = Normalize(p)
	if p == "" {
		return false
	}
	return r.set.Add(p)
}

// Untrack removes p and reports whether it was present.
func (r *Registry) Untrack(p string) bool { return r.set.Delete(Normalize(p)) }

// Has reports whether p is tracked.
func (r *Registry) Has(p string) bool { return r.set.Has(Normalize(p)) }

// List returns the tracked paths in insertion order.
func (r *Registry) List() []string { return r.set.Items() }

// Len returns the number of tracked paths.
func (r *Registry) Len() int { return r.set.Len() }

// Clone returns an independent copy of the registry.
func (r *Registry) Clone() *Registry { return &Registry{set: r.set.Clone()} }

// Touch creates every tracked file missing under root as an empty file,
// creating parent directories as needed. Existing files are left untouched.
// It returns the number of files created.
func (r *Registry) Touch(root string) (int, error) {
	created := 0
	for _, rel := range r.List() {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		_, err := os.Stat(abs)
		if err == nil {
			continue
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return created, fmt.Errorf("stat %s: %w", abs, err)
		}
		if err := os.MkdirAll(filepath.Dir(abs), 0o750); err != nil {
			return created, fmt.Errorf("create parent of %s: %w", abs, err)
		}
		// #nosec G304 -- path is derived from the build root
		f, err := os.OpenFile(abs, os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return created, fmt.Errorf("touch %s: %w", abs, err)
		}
		if err := f.Close(); err != nil {
			return created, fmt.Errorf("close %s: %w", abs, err)
		}
		created++
	}
	return created, nil
}
