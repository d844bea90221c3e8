package hooks

import (
	"context"
	"log/slog"
	"slices"

	"git.home.luguber.info/inful/noise/internal/logfields"
	"git.home.luguber.info/inful/noise/internal/site"
)

// Autoindex synthesizes a directory listing page for every directory of the
// build tree that has no index file and no route producing one.
type Autoindex struct {
	indexName string
	pending   []string
}

// NewAutoindex returns an autoindex hook using the app's index name.
func NewAutoindex(app *site.App) *Autoindex {
	return &Autoindex{indexName: app.IndexName()}
}

// Name implements site.Hook.
func (a *Autoindex) Name() string { return "autoindex" }

// Prerender registers a listing route per unindexed directory.
func (a *Autoindex) Prerender(_ context.Context, b *site.Build) error {
	a.pending = a.pending[:0]
	snap, err := b.Snapshot()
	if err != nil {
		return err
	}
	for _, d := range snap {
		if slices.Contains(d.Files, a.indexName) {
			continue
		}
		route := "/" + d.FilePath(a.indexName)
		if b.Routes.Has(route) {
			continue
		}
		key, err := b.AddRoute(route, &site.Page{Template: site.AutoindexTemplate})
		if err != nil {
			return err
		}
		a.pending = append(a.pending, key)
	}
	if len(a.pending) > 0 {
		slog.Debug("Directory listings added", logfields.BuildID(b.ID), logfields.Files(len(a.pending)))
	}
	return nil
}

// Postrender renders the synthesized listings again so they show final sizes.
func (a *Autoindex) Postrender(_ context.Context, b *site.Build) error {
	for _, route := range a.pending {
		p := b.NewPage(route)
		p.Template = site.AutoindexTemplate
		if err := p.Render(); err != nil {
			return err
		}
	}
	return nil
}

// Routes returns the listing routes added by the last prerender.
func (a *Autoindex) Routes() []string { return append([]string(nil), a.pending...) }
