package render

import (
	"fmt"
	"sync"

	"github.com/aymerick/raymond"
)

type handlebars struct {
	lib  *Library
	opts Options

	mu    sync.Mutex
	cache map[string]*raymond.Template
}

func newHandlebars(lib *Library, opts Options) *handlebars {
	return &handlebars{lib: lib, opts: opts, cache: map[string]*raymond.Template{}}
}

func (h *handlebars) Name() string { return Handlebars }

func (h *handlebars) Has(name string) bool {
	_, ok := h.lib.Source(name)
	return ok
}

func (h *handlebars) Render(name string, data map[string]any) (string, error) {
	h.mu.Lock()
	tpl, ok := h.cache[name]
	h.mu.Unlock()
	if !ok {
		src, found := h.lib.Source(name)
		if !found {
			return "", &NotFoundError{Name: name}
		}
		var err error
		if tpl, err = h.parse(src); err != nil {
			return "", fmt.Errorf("parse %s: %w", name, err)
		}
		h.mu.Lock()
		h.cache[name] = tpl
		h.mu.Unlock()
	}
	return exec(tpl, name, data)
}

func (h *handlebars) RenderText(text string, data map[string]any) (string, error) {
	tpl, err := h.parse(text)
	if err != nil {
		return "", fmt.Errorf("parse inline template: %w", err)
	}
	return exec(tpl, "inline template", data)
}

func (h *handlebars) Builtin(kind Kind, data map[string]any) (string, error) {
	src, ok := handlebarsBuiltins[kind]
	if !ok {
		return "", &NotFoundError{Name: "builtin:" + string(kind)}
	}
	return h.RenderText(src, data)
}

func exec(tpl *raymond.Template, name string, data map[string]any) (string, error) {
	out, err := tpl.Exec(data)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return out, nil
}

// parse compiles src and attaches the helpers and every library template as
// a partial.
func (h *handlebars) parse(src string) (*raymond.Template, error) {
	tpl, err := raymond.Parse(src)
	if err != nil {
		return nil, err
	}
	tpl.RegisterHelpers(h.helpers())
	tpl.RegisterPartials(h.lib.Partials())
	return tpl, nil
}

func (h *handlebars) helpers() map[string]any {
	return map[string]any{
		"markdown": func(s string) raymond.SafeString {
			out, err := h.opts.Markdown.Convert([]byte(s))
			if err != nil {
				panic(err)
			}
			return raymond.SafeString(out)
		},
		"ascii": func(s string) raymond.SafeString {
			return raymond.SafeString(ASCII(s))
		},
		"url": func(p string) string {
			return URL(h.opts.Base, p)
		},
		"toc": func(file string) raymond.SafeString {
			raw, err := readTemplateFile(h.lib.Dir, file)
			if err != nil {
				panic(err)
			}
			return raymond.SafeString(h.opts.Markdown.TOC(raw))
		},
	}
}
