package site

import (
	"context"
	"log/slog"

	nerrors "git.home.luguber.info/inful/noise/internal/errors"
	"git.home.luguber.info/inful/noise/internal/logfields"
)

// Hook is a build extension. A hook takes part in a phase by implementing the
// matching capability interface.
type Hook interface {
	Name() string
}

// Prerenderer runs before any route is rendered. It is the only phase that
// may add routes.
type Prerenderer interface {
	Prerender(ctx context.Context, b *Build) error
}

// Renderer runs for every page, after its callback and before the page
// renders itself.
type Renderer interface {
	Render(ctx context.Context, b *Build, p *Page) error
}

// Postrenderer runs once the whole tree is rendered.
type Postrenderer interface {
	Postrender(ctx context.Context, b *Build) error
}

// Completer runs after every Postrenderer has finished.
type Completer interface {
	Complete(ctx context.Context, b *Build) error
}

// Aborter releases resources when a build fails after the hook started work.
type Aborter interface {
	Abort(b *Build)
}

// Pipeline runs hooks in list order per phase. The first error aborts the
// phase.
type Pipeline struct {
	hooks []Hook
}

// NewPipeline returns a pipeline over hooks.
func NewPipeline(hooks ...Hook) *Pipeline {
	return &Pipeline{hooks: append([]Hook(nil), hooks...)}
}

// Add appends hooks.
func (p *Pipeline) Add(hooks ...Hook) { p.hooks = append(p.hooks, hooks...) }

// Hooks returns a copy of the hook list.
func (p *Pipeline) Hooks() []Hook { return append([]Hook(nil), p.hooks...) }

// Len returns the number of hooks.
func (p *Pipeline) Len() int { return len(p.hooks) }

func (p *Pipeline) clone() *Pipeline { return NewPipeline(p.hooks...) }

// Prerender calls every Prerenderer.
func (p *Pipeline) Prerender(ctx context.Context, b *Build) error {
	for _, h := range p.hooks {
		if pr, ok := h.(Prerenderer); ok {
			if err := pr.Prerender(ctx, b); err != nil {
				return nerrors.HookFailed(h.Name(), string(StagePrerender), err)
			}
		}
	}
	return nil
}

// Render calls every Renderer for page.
func (p *Pipeline) Render(ctx context.Context, b *Build, page *Page) error {
	for _, h := range p.hooks {
		if r, ok := h.(Renderer); ok {
			if err := r.Render(ctx, b, page); err != nil {
				return nerrors.HookFailed(h.Name(), string(StageRender), err).WithContext("route", page.Route)
			}
		}
	}
	return nil
}

// Postrender calls every Postrenderer.
func (p *Pipeline) Postrender(ctx context.Context, b *Build) error {
	for _, h := range p.hooks {
		if pr, ok := h.(Postrenderer); ok {
			if err := pr.Postrender(ctx, b); err != nil {
				return nerrors.HookFailed(h.Name(), string(StagePostrender), err)
			}
		}
	}
	return nil
}

// Complete calls every Completer.
func (p *Pipeline) Complete(ctx context.Context, b *Build) error {
	for _, h := range p.hooks {
		if c, ok := h.(Completer); ok {
			if err := c.Complete(ctx, b); err != nil {
				return nerrors.HookFailed(h.Name(), string(StageComplete), err)
			}
		}
	}
	return nil
}

// Abort calls every Aborter. It never fails.
func (p *Pipeline) Abort(b *Build) {
	for _, h := range p.hooks {
		if a, ok := h.(Aborter); ok {
			slog.Debug("Aborting hook", logfields.BuildID(b.ID), logfields.Hook(h.Name()))
			a.Abort(b)
		}
	}
}
