// Package render defines the template engine contract used to render pages
// and provides handlebars (raymond) and mustache implementations.
package render

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/noise/internal/markdown"
)

// ErrTemplateNotFound is matched (errors.Is) by every lookup failure.
var ErrTemplateNotFound = errors.New("template not found")

// NotFoundError names the template that could not be resolved.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("template not found: %s", e.Name) }

// Is makes errors.Is(err, ErrTemplateNotFound) hold.
func (e *NotFoundError) Is(target error) bool { return target == ErrTemplateNotFound }

// Kind selects a built-in template.
type Kind string

const (
	// KindPage is the minimal title/body document.
	KindPage Kind = "page"
	// KindAutoindex is the directory listing document.
	KindAutoindex Kind = "autoindex"
)

// Engine renders named templates from the template root, inline template
// text, and the built-in boilerplates.
type Engine interface {
	Name() string
	Has(name string) bool
	Render(name string, data map[string]any) (string, error)
	RenderText(text string, data map[string]any) (string, error)
	Builtin(kind Kind, data map[string]any) (string, error)
}

// Options configure an engine.
type Options struct {
	// Base is the site URL prefix used by the url helper.
	Base string
	// Markdown backs the markdown and toc helpers. Nil uses a default converter.
	Markdown *markdown.Converter
}

// Engine names.
const (
	Handlebars = "handlebars"
	Mustache   = "mustache"
)

// New constructs the engine called name over the templates in dir.
func New(name, dir string, opts Options) (Engine, error) {
	lib, err := LoadLibrary(dir)
	if err != nil {
		return nil, err
	}
	if opts.Markdown == nil {
		opts.Markdown = markdown.New()
	}
	switch name {
	case "", Handlebars:
		return newHandlebars(lib, opts), nil
	case Mustache:
		return newMustache(lib, opts), nil
	default:
		return nil, fmt.Errorf("unknown template engine %q", name)
	}
}

// Library is the set of template sources under the template root, keyed by
// slash-separated relative path.
type Library struct {
	Dir     string
	sources map[string]string
}

// LoadLibrary reads every non-hidden file under dir. A missing dir yields an
// empty library.
func LoadLibrary(dir string) (*Library, error) {
	lib := &Library{Dir: dir, sources: map[string]string{}}
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return lib, nil
	}
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && p != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		raw, err := os.ReadFile(p) // #nosec G304 -- template root file
		if err != nil {
			return err
		}
		lib.sources[filepath.ToSlash(rel)] = string(raw)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	return lib, nil
}

// Source returns the template text for name.
func (l *Library) Source(name string) (string, bool) {
	s, ok := l.sources[strings.TrimPrefix(name, "/")]
	return s, ok
}

// Names returns all template names sorted.
func (l *Library) Names() []string {
	out := make([]string, 0, len(l.sources))
	for n := range l.sources {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Partials returns the sources keyed for partial lookup: each template is
// reachable by its path and, when it has an extension, its path without it.
func (l *Library) Partials() map[string]string {
	out := make(map[string]string, len(l.sources)*2)
	for name, src := range l.sources {
		out[name] = src
	}
	for name, src := range l.sources {
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if _, taken := out[stem]; !taken {
			out[stem] = src
		}
	}
	return out
}
