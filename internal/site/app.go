// Package site holds the build orchestration engine: the route table, pages,
// the hook pipeline and the phased build that turns a project into its output
// tree.
package site

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"git.home.luguber.info/inful/noise/internal/config"
	"git.home.luguber.info/inful/noise/internal/eventstore"
	"git.home.luguber.info/inful/noise/internal/files"
	"git.home.luguber.info/inful/noise/internal/listing"
	"git.home.luguber.info/inful/noise/internal/logfields"
	"git.home.luguber.info/inful/noise/internal/markdown"
	"git.home.luguber.info/inful/noise/internal/metrics"
	"git.home.luguber.info/inful/noise/internal/paths"
	"git.home.luguber.info/inful/noise/internal/render"
)

const tracerName = "git.home.luguber.info/inful/noise/internal/site"

// DefaultIndexName is the conventional directory index file.
const DefaultIndexName = "index.html"

// App holds a project's declarations: routes, declared files and hooks.
// Every Build works on its own copy, so declarations stay untouched by
// routes that hooks add during a build.
type App struct {
	Paths  *paths.Resolver
	Config *config.Store

	routes *Routes
	files  *files.Registry
	hooks  *Pipeline

	engine    string
	indexName string
	ignore    []string
	markdown  *markdown.Converter
	recorder  metrics.Recorder
	events    eventstore.Store
	tracer    trace.Tracer

	buildMu sync.Mutex
}

// Option configures an App.
type Option func(*App)

// WithEngine selects the template engine by name.
func WithEngine(name string) Option { return func(a *App) { a.engine = name } }

// WithIndexName sets the directory index file name.
func WithIndexName(name string) Option {
	return func(a *App) {
		if name != "" {
			a.indexName = name
		}
	}
}

// WithIgnore sets the ignore patterns applied to static copy, listings and
// the post-render walks.
func WithIgnore(patterns []string) Option { return func(a *App) { a.ignore = patterns } }

// WithMarkdown shares a markdown converter with the template helpers.
func WithMarkdown(c *markdown.Converter) Option { return func(a *App) { a.markdown = c } }

// WithRecorder injects a metrics recorder.
func WithRecorder(r metrics.Recorder) Option { return func(a *App) { a.recorder = r } }

// WithEventStore records build history into s.
func WithEventStore(s eventstore.Store) Option { return func(a *App) { a.events = s } }

// WithTracer overrides the OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option { return func(a *App) { a.tracer = t } }

// NewApp creates an App for the project at p configured by cfg.
func NewApp(p *paths.Resolver, cfg *config.Store, opts ...Option) *App {
	reg := files.NewRegistry()
	a := &App{
		Paths:     p,
		Config:    cfg,
		files:     reg,
		routes:    NewRoutes(reg),
		hooks:     NewPipeline(),
		engine:    render.Handlebars,
		indexName: DefaultIndexName,
		ignore:    listing.DefaultIgnore,
		recorder:  metrics.NoopRecorder{},
		tracer:    otel.Tracer(tracerName),
	}
	for _, o := range opts {
		o(a)
	}
	if a.markdown == nil {
		a.markdown = markdown.New()
	}
	return a
}

// Route declares a route and returns its normalized path.
func (a *App) Route(raw string, p Producer) string { return a.routes.Add(raw, p) }

// Routes returns the declared route table.
func (a *App) Routes() *Routes { return a.routes }

// Files returns the declared file registry. Hooks that own output files
// register them here.
func (a *App) Files() *files.Registry { return a.files }

// Use appends hooks to the pipeline.
func (a *App) Use(hooks ...Hook) { a.hooks.Add(hooks...) }

// Hooks returns the declared hooks in order.
func (a *App) Hooks() []Hook { return a.hooks.Hooks() }

// IndexName returns the directory index file name.
func (a *App) IndexName() string { return a.indexName }

// Ignore returns the compiled ignore patterns.
func (a *App) Ignore() listing.Matcher { return listing.NewMatcher(a.ignore) }

func (a *App) appendEvent(ctx context.Context, r eventstore.Record) {
	if a.events == nil {
		return
	}
	if err := a.events.Append(ctx, r); err != nil {
		slog.Warn("Failed to record build event",
			logfields.BuildID(r.BuildID),
			slog.String("event", r.Kind),
			logfields.Error(err))
	}
}
