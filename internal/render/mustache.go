package render

import (
	"fmt"
	"sync"

	"github.com/cbroglie/mustache"
)

// mustacheEngine has no helper functions; templates see data only.
type mustacheEngine struct {
	lib      *Library
	opts     Options
	partials *mustache.StaticProvider

	mu    sync.Mutex
	cache map[string]*mustache.Template
}

func newMustache(lib *Library, opts Options) *mustacheEngine {
	return &mustacheEngine{
		lib:      lib,
		opts:     opts,
		partials: &mustache.StaticProvider{Partials: lib.Partials()},
		cache:    map[string]*mustache.Template{},
	}
}

func (m *mustacheEngine) Name() string { return Mustache }

func (m *mustacheEngine) Has(name string) bool {
	_, ok := m.lib.Source(name)
	return ok
}

func (m *mustacheEngine) Render(name string, data map[string]any) (string, error) {
	m.mu.Lock()
	tpl, ok := m.cache[name]
	m.mu.Unlock()
	if !ok {
		src, found := m.lib.Source(name)
		if !found {
			return "", &NotFoundError{Name: name}
		}
		var err error
		if tpl, err = mustache.ParseStringPartials(src, m.partials); err != nil {
			return "", fmt.Errorf("parse %s: %w", name, err)
		}
		m.mu.Lock()
		m.cache[name] = tpl
		m.mu.Unlock()
	}
	out, err := tpl.Render(data)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return out, nil
}

func (m *mustacheEngine) RenderText(text string, data map[string]any) (string, error) {
	tpl, err := mustache.ParseStringPartials(text, m.partials)
	if err != nil {
		return "", fmt.Errorf("parse inline template: %w", err)
	}
	out, err := tpl.Render(data)
	if err != nil {
		return "", fmt.Errorf("render inline template: %w", err)
	}
	return out, nil
}

func (m *mustacheEngine) Builtin(kind Kind, data map[string]any) (string, error) {
	src, ok := mustacheBuiltins[kind]
	if !ok {
		return "", &NotFoundError{Name: "builtin:" + string(kind)}
	}
	return m.RenderText(src, data)
}
