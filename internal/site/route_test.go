package site

import (
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/noise/internal/files"
)

func TestNormalizeRoute(t *testing.T) {
	cases := map[string]string{
		"/":               "/index.html",
		"/about/":         "/about/index.html",
		"/about":          "/about.html",
		"about":           "/about.html",
		"/x.css":          "/x.css",
		"/docs/v1.2/":     "/docs/v1.2/index.html",
		"/feed.xml":       "/feed.xml",
		"/blog/post.html": "/blog/post.html",
		"":                "/index.html",
		"/.hidden":        "/.hidden.html",
		"/docs/.env":      "/docs/.env.html",
		"/.well-known/":   "/.well-known/index.html",
		"/a/../b":         "/b.html",
		"/a/..":           "/index.html",
		"/docs/./x":       "/docs/x.html",
		"//twice//":       "/twice/index.html",
		"/../escape.css":  "/escape.css",
	}
	for in, want := range cases {
		got := NormalizeRoute(in)
		require.Equal(t, want, got, in)
		require.Equal(t, got, NormalizeRoute(got), "idempotent for %q", in)
	}
}

func TestRoutes_AddTracksAndOverwrites(t *testing.T) {
	reg := files.NewRegistry()
	r := NewRoutes(reg)

	first := Callback(func(*Page) error { return nil })
	second := &Page{Template: "b.html"}

	require.Equal(t, "/index.html", r.Add("/", first))
	r.Add("/index.html", second)

	require.Equal(t, 1, r.Len())
	p, ok := r.Get("/")
	require.True(t, ok)
	require.Same(t, second, p)
	require.Equal(t, []string{"index.html"}, reg.List())
}

func TestRoutes_EquivalentPathsShareKey(t *testing.T) {
	reg := files.NewRegistry()
	r := NewRoutes(reg)

	require.Equal(t, "/b.html", r.Add("/a/../b", &Page{Template: "first"}))
	r.Add("/b", &Page{Template: "second"})

	require.Equal(t, 1, r.Len())
	p, ok := r.Get("/./b.html")
	require.True(t, ok)
	require.Equal(t, "second", p.(*Page).Template)
	require.Equal(t, []string{"b.html"}, reg.List())
}

func TestRoutes_ResolveSorted(t *testing.T) {
	r := NewRoutes(files.NewRegistry())
	r.Add("/z", &Page{})
	r.Add("/a/", &Page{})
	r.Add("/m.txt", &Page{})

	var got []string
	for _, rt := range r.Resolve() {
		got = append(got, rt.Path)
	}
	require.Equal(t, []string{"/a/index.html", "/m.txt", "/z.html"}, got)
	require.True(t, r.Has("/a/"))
	require.False(t, r.Has("/b/"))
}

func TestRoutes_CloneIsIndependent(t *testing.T) {
	reg := files.NewRegistry()
	r := NewRoutes(reg)
	r.Add("/", &Page{})

	creg := reg.Clone()
	c := r.cloneInto(creg)
	c.Add("/extra/", &Page{})

	require.Equal(t, 1, r.Len())
	require.Equal(t, 2, c.Len())
	require.False(t, reg.Has("extra/index.html"))
	require.True(t, creg.Has("extra/index.html"))
}
