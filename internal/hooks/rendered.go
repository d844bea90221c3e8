// Package hooks contains the stock build hooks: directory autoindex, file
// manifest, sitemap, archives and the sitetree listing.
package hooks

import (
	"git.home.luguber.info/inful/noise/internal/config"
	"git.home.luguber.info/inful/noise/internal/files"
	"git.home.luguber.info/inful/noise/internal/paths"
	"git.home.luguber.info/inful/noise/internal/site"
)

// Generator is a hook that owns one output file.
type Generator interface {
	site.Hook
	File() string
}

// RenderedFile is the common part of hooks that write one file into the build
// tree. Its file is declared in the app registry so it exists from the first
// touch phase on.
type RenderedFile struct {
	registry *files.Registry
	rel      string
}

func newRenderedFile(app *site.App, name string) RenderedFile {
	rf := RenderedFile{registry: app.Files(), rel: paths.Clean(name)}
	rf.registry.Track(rf.rel)
	return rf
}

// File returns the output-relative path of the owned file.
func (r *RenderedFile) File() string { return r.rel }

// Path returns the absolute path of the owned file for b.
func (r *RenderedFile) Path(b *site.Build) string { return b.Paths.BuildPath(r.rel) }

// Relocate moves the owned file to rel, for example into a subdirectory.
func (r *RenderedFile) Relocate(rel string) {
	r.registry.Untrack(r.rel)
	r.rel = paths.Clean(rel)
	r.registry.Track(r.rel)
}

// exclusion decides which walked files a generator leaves out.
type exclusion struct {
	self      string
	generated map[string]bool
}

func newExclusion(b *site.Build, self, policy string) exclusion {
	ex := exclusion{self: self}
	if policy != config.ExcludeGenerated {
		return ex
	}
	ex.generated = map[string]bool{}
	for _, h := range b.Hooks.Hooks() {
		if g, ok := h.(Generator); ok {
			ex.generated[g.File()] = true
		}
	}
	return ex
}

func (e exclusion) skip(rel string) bool { return rel == e.self || e.generated[rel] }
