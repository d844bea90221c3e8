package project

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"git.home.luguber.info/inful/noise/internal/config"
	nerrors "git.home.luguber.info/inful/noise/internal/errors"
	"git.home.luguber.info/inful/noise/internal/eventstore"
	"git.home.luguber.info/inful/noise/internal/hooks"
	"git.home.luguber.info/inful/noise/internal/logfields"
	"git.home.luguber.info/inful/noise/internal/markdown"
	"git.home.luguber.info/inful/noise/internal/metrics"
	"git.home.luguber.info/inful/noise/internal/paths"
	"git.home.luguber.info/inful/noise/internal/render"
	"git.home.luguber.info/inful/noise/internal/site"
)

// HistoryFile is the build history database inside the state directory.
const HistoryFile = "history.db"

// HistoryRetention is the number of builds kept in the history database.
const HistoryRetention = 100

// ContentTemplate is used for markdown pages that name no template, when the
// template root provides it.
const ContentTemplate = "_page.html"

// Project is a loaded project wired for building.
type Project struct {
	Paths    *paths.Resolver
	Config   *config.Store
	Settings config.Settings
	App      *site.App

	history *eventstore.SQLiteStore
}

type options struct {
	recorder metrics.Recorder
	history  *bool
}

// Option configures Load.
type Option func(*options)

// WithRecorder records build metrics into r.
func WithRecorder(r metrics.Recorder) Option { return func(o *options) { o.recorder = r } }

// WithHistory forces build history on or off regardless of config.
func WithHistory(enabled bool) Option { return func(o *options) { o.history = &enabled } }

// Load reads the project at dir and wires its routes and hooks.
func Load(dir string, opts ...Option) (*Project, error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	p, err := paths.New(dir)
	if err != nil {
		return nil, nerrors.ValidationFailed("project", err.Error())
	}
	if fi, err := os.Stat(p.Root); err != nil || !fi.IsDir() {
		return nil, nerrors.ValidationFailed("project", fmt.Sprintf("%s is not a project directory", p.Root))
	}

	store := config.LoadProject(p.Root, p.Config)
	settings, err := store.Settings()
	if err != nil {
		return nil, err
	}

	prj := &Project{Paths: p, Config: store, Settings: settings}
	conv := markdown.New()
	appOpts := []site.Option{
		site.WithEngine(settings.Engine),
		site.WithIndexName(settings.Index),
		site.WithIgnore(settings.Ignore),
		site.WithMarkdown(conv),
	}
	if o.recorder != nil {
		appOpts = append(appOpts, site.WithRecorder(o.recorder))
	}

	history := settings.History
	if o.history != nil {
		history = *o.history
	}
	if history {
		es, err := OpenHistory(p)
		if err != nil {
			return nil, err
		}
		prj.history = es
		appOpts = append(appOpts, site.WithEventStore(es))
	}

	prj.App = site.NewApp(p, store, appOpts...)
	if err := prj.wireRoutes(conv); err != nil {
		_ = prj.Close()
		return nil, err
	}
	if err := prj.wireHooks(); err != nil {
		_ = prj.Close()
		return nil, err
	}
	slog.Debug("Project loaded",
		logfields.Project(p.Root),
		slog.Int("routes", prj.App.Routes().Len()),
		slog.Int("hooks", len(prj.App.Hooks())))
	return prj, nil
}

// OpenHistory opens (creating if needed) the project's build history.
func OpenHistory(p *paths.Resolver) (*eventstore.SQLiteStore, error) {
	if err := os.MkdirAll(p.State, 0o750); err != nil {
		return nil, nerrors.FilesystemError("create state directory", err)
	}
	es, err := eventstore.NewSQLiteStore(filepath.Join(p.State, HistoryFile))
	if err != nil {
		return nil, nerrors.FilesystemError("open build history", err)
	}
	return es, nil
}

// Build runs one build of the project and trims the history afterwards.
func (p *Project) Build(ctx context.Context) (*site.BuildReport, error) {
	report, err := p.App.Build(ctx)
	if p.history != nil {
		removed, perr := p.history.Prune(context.WithoutCancel(ctx), HistoryRetention)
		if perr != nil {
			slog.Warn("Failed to prune build history", logfields.Error(perr))
		} else if removed > 0 {
			slog.Debug("Pruned build history", slog.Int("removed", removed))
		}
	}
	return report, err
}

// Close releases the history store.
func (p *Project) Close() error {
	if p.history == nil {
		return nil
	}
	err := p.history.Close()
	p.history = nil
	return err
}

// wireRoutes declares routes in increasing precedence: discovered
// templates, markdown content pages, then routes from config.json.
func (p *Project) wireRoutes(conv *markdown.Converter) error {
	lib, err := render.LoadLibrary(p.Paths.Template)
	if err != nil {
		return nerrors.FilesystemError("load templates", err)
	}
	if p.Settings.DiscoverTemplates {
		for _, name := range lib.Names() {
			if hiddenTemplate(name) {
				continue
			}
			p.App.Route("/"+name, &site.Page{Template: name})
		}
	}

	pages, err := conv.LoadPages(p.Paths.Content)
	if err != nil {
		return nerrors.FilesystemError("load content", err)
	}
	_, hasContentTemplate := lib.Source(ContentTemplate)
	for _, mp := range pages {
		tpl := mp.Template
		if tpl == "" && hasContentTemplate {
			tpl = ContentTemplate
		}
		p.App.Route(mp.Route, &site.Page{Template: tpl, Data: mp.Data()})
	}

	for _, route := range slices.Sorted(maps.Keys(p.Settings.Routes)) {
		spec := p.Settings.Routes[route]
		p.App.Route(route, &site.Page{
			Template:    spec.Template,
			Data:        spec.Data,
			Passthrough: spec.Passthrough,
		})
	}
	return nil
}

// hiddenTemplate reports whether any segment of name starts with "_".
func hiddenTemplate(name string) bool {
	for _, seg := range strings.Split(name, "/") {
		if strings.HasPrefix(seg, "_") {
			return true
		}
	}
	return false
}

// wireHooks installs the configured hooks in execution order: listings
// first, then sitemap and manifest, archives, and the sitetree last.
func (p *Project) wireHooks() error {
	s := p.Settings
	app := p.App
	if s.Autoindex {
		app.Use(hooks.NewAutoindex(app))
	}
	if s.Sitemap != "" {
		app.Use(hooks.NewSitemap(app, s.Sitemap))
	}
	if s.Manifest != "" {
		m, err := hooks.NewManifest(app, hooks.ManifestOptions{
			File:    s.Manifest,
			Hash:    s.ManifestHash,
			Exclude: s.ExcludeGenerated,
		})
		if err != nil {
			return err
		}
		app.Use(m)
	}
	for _, spec := range s.Archives {
		a, err := hooks.NewArchive(app, hooks.ArchiveOptions{
			Format:  spec.Format,
			File:    spec.File,
			Exclude: s.ExcludeGenerated,
		})
		if err != nil {
			return err
		}
		app.Use(a)
	}
	if s.Sitetree != "" {
		app.Use(hooks.NewSitetree(app, s.Sitetree))
	}
	return nil
}

// History returns the last n build summaries, newest first. It fails when
// the project has never recorded history.
func History(ctx context.Context, p *paths.Resolver, n int) ([]eventstore.BuildSummary, error) {
	db := filepath.Join(p.State, HistoryFile)
	if _, err := os.Stat(db); errors.Is(err, fs.ErrNotExist) {
		return nil, nerrors.ValidationFailed("history", "no build history recorded; enable \"history\" in config.json")
	}
	es, err := eventstore.NewSQLiteStore(db)
	if err != nil {
		return nil, nerrors.FilesystemError("open build history", err)
	}
	defer func() { _ = es.Close() }()
	return eventstore.History(ctx, es, n)
}
