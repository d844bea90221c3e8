package site

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/noise/internal/config"
	nerrors "git.home.luguber.info/inful/noise/internal/errors"
	"git.home.luguber.info/inful/noise/internal/eventstore"
	"git.home.luguber.info/inful/noise/internal/paths"
)

func newTestApp(t *testing.T, opts ...Option) *App {
	t.Helper()
	root := t.TempDir()
	p, err := paths.New(root)
	require.NoError(t, err)
	require.NoError(t, p.Init())
	return NewApp(p, config.Load(p.Config), opts...)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path) // #nosec G304 -- test path
	require.NoError(t, err)
	return string(b)
}

type recordingHook struct {
	name   string
	calls  *[]string
	failAt StageName
}

func (h recordingHook) Name() string { return h.name }

func (h recordingHook) record(phase StageName) error {
	*h.calls = append(*h.calls, h.name+":"+string(phase))
	if h.failAt == phase {
		return os.ErrPermission
	}
	return nil
}

func (h recordingHook) Prerender(context.Context, *Build) error { return h.record(StagePrerender) }
func (h recordingHook) Render(_ context.Context, _ *Build, p *Page) error {
	*h.calls = append(*h.calls, h.name+":render:"+p.Route)
	return nil
}
func (h recordingHook) Postrender(context.Context, *Build) error { return h.record(StagePostrender) }
func (h recordingHook) Complete(context.Context, *Build) error   { return h.record(StageComplete) }
func (h recordingHook) Abort(*Build)                              { *h.calls = append(*h.calls, h.name+":abort") }

func TestBuild_StaticAndTemplate(t *testing.T) {
	app := newTestApp(t)
	writeFile(t, app.Paths.StaticPath("a.txt"), "static")
	writeFile(t, app.Paths.StaticPath(".hidden"), "nope")
	writeFile(t, app.Paths.TemplatePath("index.html"), "{{title}}")
	app.Route("/", &Page{Template: "index.html", Data: map[string]any{"title": "T"}})

	rep, err := app.Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, rep.Outcome)
	require.Equal(t, "T", readFile(t, app.Paths.BuildPath("index.html")))
	require.Equal(t, "static", readFile(t, app.Paths.BuildPath("a.txt")))
	require.NoFileExists(t, app.Paths.BuildPath(".hidden"))
	require.Equal(t, 1, rep.RenderedPages)
	require.Equal(t, 1, rep.StaticFiles)

	_, err = app.Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, "T", readFile(t, app.Paths.BuildPath("index.html")))
	require.FileExists(t, filepath.Join(app.Paths.State, ReportJSON))
	require.FileExists(t, filepath.Join(app.Paths.State, ReportText))
}

func TestBuild_ClearsStaleOutput(t *testing.T) {
	app := newTestApp(t)
	writeFile(t, app.Paths.BuildPath("stale.html"), "old")

	_, err := app.Build(context.Background())
	require.NoError(t, err)
	require.NoFileExists(t, app.Paths.BuildPath("stale.html"))
}

func TestBuild_StaticMtimePreserved(t *testing.T) {
	app := newTestApp(t)
	src := app.Paths.StaticPath("css/site.css")
	writeFile(t, src, "body{}")
	past := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, os.Chtimes(src, past, past))

	_, err := app.Build(context.Background())
	require.NoError(t, err)
	fi, err := os.Stat(app.Paths.BuildPath("css/site.css"))
	require.NoError(t, err)
	require.True(t, fi.ModTime().Equal(past))
}

func TestBuild_LastRouteWins(t *testing.T) {
	app := newTestApp(t)
	app.Route("/", &Page{Template: "/abs/missing.html"})
	app.Route("/index.html", Callback(func(p *Page) error {
		p.Data["title"] = "second"
		return nil
	}))

	_, err := app.Build(context.Background())
	require.NoError(t, err)
	require.Contains(t, readFile(t, app.Paths.BuildPath("index.html")), "<title>second</title>")
}

func TestBuild_DerivedTemplateName(t *testing.T) {
	app := newTestApp(t)
	writeFile(t, app.Paths.TemplatePath("about.html"), "about {{page.route}}")
	app.Route("/about", Callback(func(*Page) error { return nil }))

	_, err := app.Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, "about /about.html", readFile(t, app.Paths.BuildPath("about.html")))
}

func TestBuild_RawTemplateOutsideRoot(t *testing.T) {
	app := newTestApp(t)
	raw := filepath.Join(t.TempDir(), "raw.hbs")
	writeFile(t, raw, "raw {{name}}")
	app.Route("/r", &Page{Template: raw, Data: map[string]any{"name": "x"}})

	_, err := app.Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, "raw x", readFile(t, app.Paths.BuildPath("r.html")))
}

func TestBuild_MissingTemplateFails(t *testing.T) {
	app := newTestApp(t)
	app.Route("/", &Page{Template: "nope.html"})

	rep, err := app.Build(context.Background())
	require.Error(t, err)
	require.True(t, nerrors.IsCategory(err, nerrors.CategoryTemplate))
	require.Equal(t, OutcomeFailed, rep.Outcome)
	require.Equal(t, StageRender, rep.FailedStage)
}

func TestBuild_PassthroughKeepsCallbackOutput(t *testing.T) {
	app := newTestApp(t)
	app.Route("/data.json", Callback(func(p *Page) error {
		p.Passthrough = true
		return os.WriteFile(p.Path, []byte(`{"a":1}`), 0o600)
	}))

	rep, err := app.Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, `{"a":1}`, readFile(t, app.Paths.BuildPath("data.json")))
	require.Equal(t, 0, rep.RenderedPages)
}

func TestBuild_ContextDoesNotMutateData(t *testing.T) {
	app := newTestApp(t)
	data := map[string]any{"title": "x"}
	app.Route("/", &Page{Data: data})

	_, err := app.Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[string]any{"title": "x"}, data)
}

func TestBuild_ContextExposesIndexAndConfig(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, app.Config.Set("base", "https://example.org"))
	writeFile(t, app.Paths.StaticPath("docs/a.txt"), "a")
	writeFile(t, app.Paths.TemplatePath("list.html"),
		"{{base}}|{{index.current.pwd}}|{{#each index.current.entries}}{{this}},{{/each}}|{{index.parent.pwd}}")
	app.Route("/docs/", &Page{Template: "list.html"})

	_, err := app.Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, "https://example.org|/docs/|a.txt,index.html,|/",
		readFile(t, app.Paths.BuildPath("docs/index.html")))
}

func TestBuild_HookOrderAndDeclaredFiles(t *testing.T) {
	var calls []string
	app := newTestApp(t)
	app.Use(recordingHook{name: "a", calls: &calls}, recordingHook{name: "b", calls: &calls})
	app.Files().Track("robots.txt")
	app.Route("/", Callback(func(*Page) error { return nil }))

	_, err := app.Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{
		"a:prerender", "b:prerender",
		"a:render:/index.html", "b:render:/index.html",
		"a:postrender", "b:postrender",
		"a:complete", "b:complete",
	}, calls)
	require.FileExists(t, app.Paths.BuildPath("robots.txt"))
}

func TestBuild_HookFailureAborts(t *testing.T) {
	var calls []string
	app := newTestApp(t)
	app.Use(recordingHook{name: "a", calls: &calls, failAt: StagePostrender})

	rep, err := app.Build(context.Background())
	require.Error(t, err)
	require.True(t, nerrors.IsCategory(err, nerrors.CategoryHook))
	require.Equal(t, StagePostrender, rep.FailedStage)
	require.Equal(t, "a:abort", calls[len(calls)-1])
	require.NotContains(t, calls, "a:complete")
}

type routeAdder struct{ route string }

func (routeAdder) Name() string { return "adder" }

func (h routeAdder) Prerender(_ context.Context, b *Build) error {
	_, err := b.AddRoute(h.route, Callback(func(p *Page) error {
		p.Data["title"] = "added"
		return nil
	}))
	return err
}

func (h routeAdder) Postrender(_ context.Context, b *Build) error {
	_, err := b.AddRoute("/late", Callback(func(*Page) error { return nil }))
	if !errors.Is(err, ErrRoutesSealed) {
		return os.ErrInvalid
	}
	return nil
}

func TestBuild_RoutesAddedDuringBuildAreScoped(t *testing.T) {
	app := newTestApp(t)
	app.Use(routeAdder{route: "/extra/"})

	rep, err := app.Build(context.Background())
	require.NoError(t, err)
	require.FileExists(t, app.Paths.BuildPath("extra/index.html"))
	require.Equal(t, 1, rep.Routes)
	require.Equal(t, 0, app.Routes().Len())
	require.False(t, app.Files().Has("extra/index.html"))
}

func TestBuild_Canceled(t *testing.T) {
	app := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := app.Build(ctx)
	require.Error(t, err)
	require.Equal(t, OutcomeCanceled, rep.Outcome)
	require.Equal(t, StagePrepareOutput, rep.FailedStage)
}

func TestBuild_RecordsHistory(t *testing.T) {
	store, err := eventstore.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	app := newTestApp(t, WithEventStore(store))
	rep, err := app.Build(context.Background())
	require.NoError(t, err)

	events, err := store.Events(context.Background(), rep.BuildID)
	require.NoError(t, err)
	require.Equal(t, eventstore.KindBuildStarted, events[0].Kind)
	require.Equal(t, eventstore.KindBuildCompleted, events[len(events)-1].Kind)
	require.Len(t, events, 2+7)
}

func TestBuild_ModTimePrefersStatic(t *testing.T) {
	app := newTestApp(t)
	src := app.Paths.StaticPath("a.txt")
	writeFile(t, src, "a")
	past := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(src, past, past))

	var got time.Time
	app.Use(completeFunc(func(b *Build) error {
		var err error
		got, err = b.ModTime("a.txt")
		require.True(t, b.IsStatic("/a.txt"))
		return err
	}))
	_, err := app.Build(context.Background())
	require.NoError(t, err)
	require.True(t, got.Equal(past))
}

type completeFunc func(*Build) error

func (completeFunc) Name() string                                 { return "complete-func" }
func (f completeFunc) Complete(_ context.Context, b *Build) error { return f(b) }
