package site

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"git.home.luguber.info/inful/noise/internal/config"
	nerrors "git.home.luguber.info/inful/noise/internal/errors"
	"git.home.luguber.info/inful/noise/internal/eventstore"
	"git.home.luguber.info/inful/noise/internal/files"
	"git.home.luguber.info/inful/noise/internal/listing"
	"git.home.luguber.info/inful/noise/internal/logfields"
	"git.home.luguber.info/inful/noise/internal/metrics"
	"git.home.luguber.info/inful/noise/internal/paths"
	"git.home.luguber.info/inful/noise/internal/render"
)

// ErrRoutesSealed is returned by Build.AddRoute once rendering has started.
var ErrRoutesSealed = errors.New("routes can only be added before the render phase")

// Build is the state of one build run. It owns copies of the app's route
// table, file registry and hook list.
type Build struct {
	ID        string
	Paths     *paths.Resolver
	Routes    *Routes
	Files     *files.Registry
	Hooks     *Pipeline
	Engine    render.Engine
	Config    map[string]any
	Base      string
	IndexName string
	Ignore    listing.Matcher
	Report    *BuildReport

	app    *App
	phase  StageName
	static map[string]bool
}

func (a *App) newBuild() *Build {
	reg := a.files.Clone()
	id := uuid.NewString()
	return &Build{
		ID:        id,
		Paths:     a.Paths,
		Routes:    a.routes.cloneInto(reg),
		Files:     reg,
		Hooks:     a.hooks.clone(),
		Config:    a.Config.Map(),
		Base:      a.Config.GetString(config.KeyBase),
		IndexName: a.indexName,
		Ignore:    a.Ignore(),
		Report:    newBuildReport(id, a.Paths.Name()),
		app:       a,
		static:    map[string]bool{},
	}
}

// Build runs a full build: clear and copy static, touch declared files,
// prerender, render every route, touch again, postrender and complete. The
// report is returned even when the build fails.
func (a *App) Build(ctx context.Context) (*BuildReport, error) {
	a.buildMu.Lock()
	defer a.buildMu.Unlock()

	b := a.newBuild()
	ctx, span := a.tracer.Start(ctx, "noise.build", trace.WithAttributes(
		attribute.String("noise.build_id", b.ID),
		attribute.String("noise.project", b.Report.Project),
	))
	defer span.End()

	slog.Info("Build started",
		logfields.BuildID(b.ID),
		logfields.Project(a.Paths.Root),
		slog.Int("routes", b.Routes.Len()),
		slog.Int("hooks", b.Hooks.Len()))
	if ev, err := eventstore.NewBuildStarted(b.ID, eventstore.BuildStartedPayload{
		Project: a.Paths.Root, Routes: b.Routes.Len(), Hooks: b.Hooks.Len(),
	}); err == nil {
		a.appendEvent(ctx, ev)
	}

	err := runStages(ctx, b, []stageDef{
		{StagePrepareOutput, prepareOutput},
		{StageTouchDeclared, touchFiles},
		{StagePrerender, func(ctx context.Context, b *Build) error { return b.Hooks.Prerender(ctx, b) }},
		{StageRender, renderRoutes},
		{StageTouchRendered, touchFiles},
		{StagePostrender, func(ctx context.Context, b *Build) error { return b.Hooks.Postrender(ctx, b) }},
		{StageComplete, func(ctx context.Context, b *Build) error { return b.Hooks.Complete(ctx, b) }},
	})
	if err != nil {
		b.Hooks.Abort(b)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	a.finish(ctx, b, err)
	if err != nil {
		return b.Report, nerrors.BuildFailed(string(b.Report.FailedStage), err)
	}
	return b.Report, nil
}

func (a *App) finish(ctx context.Context, b *Build, buildErr error) {
	rep := b.Report
	rep.Routes = b.Routes.Len()
	rep.Files = b.Files.Len()
	rep.StaticFiles = len(b.static)
	rep.Finish()
	rep.DeriveOutcome()

	rec := b.recorder()
	rec.ObserveBuildDuration(rep.Duration())
	rec.IncBuildOutcome(string(rep.Outcome))
	rec.AddPagesRendered(rep.RenderedPages)
	rec.SetTrackedFiles(rep.Files)

	var ev eventstore.Record
	var evErr error
	if buildErr != nil {
		ev, evErr = eventstore.NewBuildFailed(b.ID, eventstore.BuildFailedPayload{
			Phase:      string(rep.FailedStage),
			Outcome:    string(rep.Outcome),
			Error:      buildErr.Error(),
			DurationMS: rep.Duration().Milliseconds(),
		})
	} else {
		ev, evErr = eventstore.NewBuildCompleted(b.ID, eventstore.BuildCompletedPayload{
			Outcome:    string(rep.Outcome),
			Files:      rep.Files,
			Pages:      rep.RenderedPages,
			DurationMS: rep.Duration().Milliseconds(),
		})
	}
	if evErr == nil {
		a.appendEvent(context.WithoutCancel(ctx), ev)
	}

	if err := rep.Persist(a.Paths.State); err != nil {
		slog.Warn("Failed to persist build report", logfields.BuildID(b.ID), logfields.Error(err))
	}

	attrs := []any{
		logfields.BuildID(b.ID),
		logfields.Outcome(string(rep.Outcome)),
		logfields.Files(rep.Files),
		slog.Int("pages", rep.RenderedPages),
		logfields.DurationMS(float64(rep.Duration().Microseconds()) / 1000),
	}
	if buildErr != nil {
		slog.Error("Build failed", append(attrs, logfields.Phase(string(rep.FailedStage)), logfields.Error(buildErr))...)
		return
	}
	slog.Info("Build complete", attrs...)
}

func (b *Build) recorder() metrics.Recorder {
	if b.app == nil || b.app.recorder == nil {
		return metrics.NoopRecorder{}
	}
	return b.app.recorder
}

// Phase returns the phase currently executing.
func (b *Build) Phase() StageName { return b.phase }

// App returns the app the build was started from.
func (b *Build) App() *App { return b.app }

// AddRoute adds a route to this build only. It fails once rendering started.
func (b *Build) AddRoute(raw string, p Producer) (string, error) {
	switch b.phase {
	case "", StagePrepareOutput, StageTouchDeclared, StagePrerender:
		return b.Routes.Add(raw, p), nil
	default:
		return "", fmt.Errorf("add route %s during %s: %w", raw, b.phase, ErrRoutesSealed)
	}
}

// NewPage returns an empty page for route bound to this build.
func (b *Build) NewPage(route string) *Page {
	route = NormalizeRoute(route)
	return &Page{
		Route: route,
		Path:  b.Paths.BuildPath(route),
		Data:  map[string]any{},
		build: b,
	}
}

// Index lists dir (inside the build root) and its parent.
func (b *Build) Index(dir string) (listing.Index, error) {
	return listing.IndexFor(b.Paths.Build, dir, b.Ignore)
}

// Snapshot walks the build tree with ignored entries filtered.
func (b *Build) Snapshot() (listing.Snapshot, error) {
	return listing.Walk(b.Paths.Build, b.Ignore)
}

// IsStatic reports whether rel was copied from the static tree.
func (b *Build) IsStatic(rel string) bool { return b.static[paths.Clean(rel)] }

// ModTime returns the timestamp reported for an output file: the static
// source's mtime for a copied static file that no route rewrote, otherwise
// the build copy's.
func (b *Build) ModTime(rel string) (time.Time, error) {
	rel = paths.Clean(rel)
	if b.IsStatic(rel) && !b.Routes.Has("/"+rel) {
		if fi, err := os.Stat(b.Paths.StaticPath(rel)); err == nil && fi.Mode().IsRegular() {
			return fi.ModTime(), nil
		}
	}
	fi, err := os.Stat(b.Paths.BuildPath(rel))
	if err != nil {
		return time.Time{}, err
	}
	return fi.ModTime(), nil
}

func prepareOutput(_ context.Context, b *Build) error {
	eng, err := render.New(b.app.engine, b.Paths.Template, render.Options{Base: b.Base, Markdown: b.app.markdown})
	if err != nil {
		return nerrors.ConfigInvalid(b.Paths.Config, err).WithContext("field", "engine")
	}
	b.Engine = eng

	if err := os.RemoveAll(b.Paths.Build); err != nil {
		return nerrors.FilesystemError("clear build directory", err)
	}
	if err := os.MkdirAll(b.Paths.Build, 0o750); err != nil {
		return nerrors.FilesystemError("create build directory", err)
	}

	if _, err := os.Stat(b.Paths.Static); errors.Is(err, fs.ErrNotExist) {
		slog.Debug("No static directory", logfields.Path(b.Paths.Static))
		return nil
	}
	snap, err := listing.Walk(b.Paths.Static, b.Ignore)
	if err != nil {
		return nerrors.FilesystemError("walk static directory", err)
	}
	for _, d := range snap {
		if err := os.MkdirAll(b.Paths.BuildPath(d.Rel), 0o750); err != nil {
			return nerrors.FilesystemError("create directory", err).WithContext("path", d.Rel)
		}
		for _, name := range d.Files {
			rel := d.FilePath(name)
			if err := copyFile(b.Paths.StaticPath(rel), b.Paths.BuildPath(rel)); err != nil {
				return nerrors.FilesystemError("copy static file", err).WithContext("path", rel)
			}
			b.Files.Track(rel)
			b.static[rel] = true
		}
	}
	slog.Debug("Static files copied", logfields.BuildID(b.ID), logfields.Files(len(b.static)))
	return nil
}

// copyFile copies src to dst keeping the permission bits and modification time.
func copyFile(src, dst string) error {
	in, err := os.Open(src) // #nosec G304 -- static tree file
	if err != nil {
		return err
	}
	defer in.Close()
	fi, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fi.Mode().Perm()) // #nosec G304 -- build tree file
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, fi.ModTime(), fi.ModTime())
}

func touchFiles(_ context.Context, b *Build) error {
	created, err := b.Files.Touch(b.Paths.Build)
	if err != nil {
		return nerrors.FilesystemError("touch tracked files", err)
	}
	if created > 0 {
		slog.Debug("Touched tracked files", logfields.BuildID(b.ID), logfields.Phase(string(b.phase)), logfields.Files(created))
	}
	return nil
}

func renderRoutes(ctx context.Context, b *Build) error {
	for _, rt := range b.Routes.Resolve() {
		page, err := b.materialize(rt)
		if err != nil {
			return err
		}
		if err := b.Hooks.Render(ctx, b, page); err != nil {
			return err
		}
		if !page.Rendered() {
			if err := page.Render(); err != nil {
				return err
			}
		}
		if !page.Passthrough {
			b.Report.RenderedPages++
		}
		slog.Debug("Rendered route", logfields.BuildID(b.ID), logfields.Route(rt.Path))
	}
	return nil
}

// materialize produces the page for rt, running its callback.
func (b *Build) materialize(rt Route) (*Page, error) {
	switch p := rt.Producer.(type) {
	case Callback:
		page := b.NewPage(rt.Path)
		if err := p(page); err != nil {
			return nil, fmt.Errorf("route %s: %w", rt.Path, err)
		}
		return page, nil
	case *Page:
		return p.bind(b, rt.Path), nil
	default:
		return nil, nerrors.InternalError("unknown route producer", nil).WithContext("route", rt.Path)
	}
}
