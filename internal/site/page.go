package site

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"strings"

	nerrors "git.home.luguber.info/inful/noise/internal/errors"
	"git.home.luguber.info/inful/noise/internal/render"
)

// AutoindexTemplate is the template name given to synthesized directory
// listing pages. When the template root has no such file the built-in
// listing is used.
const AutoindexTemplate = "_index.html"

// Page is one output file produced by a route.
//
// Template selects the template: "" derives the name from the output path
// (falling back to the built-in page), an absolute path outside the template
// root is read as raw template text, anything else is a template name.
// Passthrough disables rendering; the callback or hooks own the file.
type Page struct {
	Route       string
	Path        string
	Template    string
	Passthrough bool
	Data        map[string]any

	build    *Build
	rendered bool
}

func (*Page) producer() {}

// Build returns the build the page belongs to.
func (p *Page) Build() *Build { return p.build }

// Rendered reports whether Render has completed for this page.
func (p *Page) Rendered() bool { return p.rendered }

// Render writes the page to Path. Data is never modified.
func (p *Page) Render() error {
	if p.Passthrough {
		p.rendered = true
		return nil
	}
	if p.build == nil {
		return nerrors.InternalError("page rendered outside a build", nil).WithContext("route", p.Route)
	}
	if err := os.MkdirAll(filepath.Dir(p.Path), 0o750); err != nil {
		return nerrors.FilesystemError("create page directory", err).WithContext("path", p.Path)
	}
	data, err := p.context()
	if err != nil {
		return err
	}
	out, err := p.execute(data)
	if err != nil {
		if errors.Is(err, render.ErrTemplateNotFound) {
			return nerrors.TemplateMissing(p.templateLabel(), err).WithContext("route", p.Route)
		}
		return fmt.Errorf("render %s: %w", p.Route, err)
	}
	if err := os.WriteFile(p.Path, []byte(out), 0o644); err != nil {
		return nerrors.FilesystemError("write page", err).WithContext("path", p.Path)
	}
	p.rendered = true
	return nil
}

func (p *Page) templateLabel() string {
	if p.Template != "" {
		return p.Template
	}
	return p.derivedName()
}

// derivedName is the template name matching the page's output path.
func (p *Page) derivedName() string {
	return strings.TrimPrefix(p.Route, "/")
}

func (p *Page) execute(data map[string]any) (string, error) {
	eng := p.build.Engine
	tpl := p.Template
	switch {
	case tpl != "" && filepath.IsAbs(tpl) && !p.build.Paths.InTemplateRoot(tpl):
		raw, err := os.ReadFile(tpl) // #nosec G304 -- template path supplied by the project
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", &render.NotFoundError{Name: tpl}
			}
			return "", err
		}
		return eng.RenderText(string(raw), data)
	case tpl != "":
		name := tpl
		if filepath.IsAbs(tpl) {
			rel, err := filepath.Rel(p.build.Paths.Template, tpl)
			if err != nil {
				return "", err
			}
			name = filepath.ToSlash(rel)
		}
		if !eng.Has(name) {
			if name == AutoindexTemplate {
				return eng.Builtin(render.KindAutoindex, data)
			}
			return "", &render.NotFoundError{Name: name}
		}
		return eng.Render(name, data)
	default:
		name := p.derivedName()
		if eng.Has(name) {
			return eng.Render(name, data)
		}
		return eng.Builtin(render.KindPage, data)
	}
}

// context builds the template data: a shallow copy of Data plus index,
// config, base and page unless Data already supplies them.
func (p *Page) context() (map[string]any, error) {
	out := make(map[string]any, len(p.Data)+4)
	maps.Copy(out, p.Data)
	if _, ok := out["index"]; !ok {
		ix, err := p.build.Index(filepath.Dir(p.Path))
		if err != nil {
			return nil, nerrors.FilesystemError("list page directory", err).WithContext("path", p.Path)
		}
		out["index"] = ix.Map()
	}
	if _, ok := out["config"]; !ok {
		out["config"] = maps.Clone(p.build.Config)
	}
	if _, ok := out["base"]; !ok {
		out["base"] = p.build.Base
	}
	if _, ok := out["page"]; !ok {
		out["page"] = map[string]any{"route": p.Route, "path": p.Path}
	}
	return out, nil
}

// bind returns a copy of p attached to b at route.
func (p *Page) bind(b *Build, route string) *Page {
	c := *p
	c.Data = maps.Clone(p.Data)
	if c.Data == nil {
		c.Data = map[string]any{}
	}
	c.Route = route
	c.Path = b.Paths.BuildPath(route)
	c.build = b
	c.rendered = false
	return &c
}
