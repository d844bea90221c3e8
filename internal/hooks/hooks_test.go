package hooks

import (
	"archive/tar"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/noise/internal/config"
	"git.home.luguber.info/inful/noise/internal/listing"
	"git.home.luguber.info/inful/noise/internal/paths"
	"git.home.luguber.info/inful/noise/internal/site"
)

func newApp(t *testing.T, static map[string]string) *site.App {
	t.Helper()
	p, err := paths.New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, p.Init())
	for rel, content := range static {
		abs := p.StaticPath(rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o750))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0o600))
	}
	return site.NewApp(p, config.Load(p.Config))
}

func build(t *testing.T, app *site.App) {
	t.Helper()
	_, err := app.Build(context.Background())
	require.NoError(t, err)
}

func read(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path) // #nosec G304 -- test path
	require.NoError(t, err)
	return string(b)
}

func TestAutoindex_CreatesMissingListings(t *testing.T) {
	app := newApp(t, map[string]string{
		"docs/a.txt":      "a",
		"blog/index.html": "mine",
		"user/x.txt":      "x",
	})
	app.Route("/user/", site.Callback(func(p *site.Page) error {
		p.Data["title"] = "user page"
		return nil
	}))
	ai := NewAutoindex(app)
	app.Use(ai)
	build(t, app)

	require.Equal(t, "mine", read(t, app.Paths.BuildPath("blog/index.html")))
	require.Contains(t, read(t, app.Paths.BuildPath("user/index.html")), "<title>user page</title>")

	docs := read(t, app.Paths.BuildPath("docs/index.html"))
	require.Contains(t, docs, "Index of /docs/")
	require.Contains(t, docs, `href="/docs/a.txt"`)
	require.Contains(t, docs, `href="/docs/index.html"`)

	root := read(t, app.Paths.BuildPath("index.html"))
	require.Contains(t, root, `href="/blog/"`)
	require.Contains(t, root, `href="/docs/"`)

	require.ElementsMatch(t, []string{"/index.html", "/docs/index.html"}, ai.Routes())
	require.Equal(t, 1, app.Routes().Len())
}

func TestAutoindex_ListsFinalSizes(t *testing.T) {
	app := newApp(t, nil)
	app.Route("/docs/page", site.Callback(func(p *site.Page) error {
		p.Data["body"] = strings.Repeat("x", 500)
		return nil
	}))
	app.Use(NewAutoindex(app))
	build(t, app)

	fi, err := os.Stat(app.Paths.BuildPath("docs/page.html"))
	require.NoError(t, err)
	require.Greater(t, fi.Size(), int64(500))

	var entry string
	for _, line := range strings.Split(read(t, app.Paths.BuildPath("docs/index.html")), "\n") {
		if strings.Contains(line, ">page.html</a>") {
			entry = line
		}
	}
	require.NotEmpty(t, entry)
	require.True(t, strings.HasSuffix(entry, fmt.Sprintf(" %d</li>", fi.Size())), entry)
}

func TestAutoindex_IgnoredDirsSkipped(t *testing.T) {
	app := newApp(t, map[string]string{
		"index.html":   "root",
		".git/config":  "x",
		"assets/a.css": "a",
	})
	app.Use(NewAutoindex(app))
	build(t, app)

	require.NoDirExists(t, app.Paths.BuildPath(".git"))
	require.FileExists(t, app.Paths.BuildPath("assets/index.html"))
	require.Equal(t, "root", read(t, app.Paths.BuildPath("index.html")))
}

func TestManifest_OrderAndSelfExclusion(t *testing.T) {
	app := newApp(t, map[string]string{
		"b.txt":     "bee",
		"a.txt":     "ay",
		"sub/c.txt": "sea",
	})
	past := time.Date(2019, 5, 6, 7, 8, 9, 0, time.UTC)
	require.NoError(t, os.Chtimes(app.Paths.StaticPath("a.txt"), past, past))

	m, err := NewManifest(app, ManifestOptions{Hash: config.HashSHA256})
	require.NoError(t, err)
	app.Use(m)
	build(t, app)

	lines := strings.Split(strings.TrimSuffix(read(t, app.Paths.BuildPath(m.File())), "\n"), "\n")
	require.Len(t, lines, 3)

	sum := sha256.Sum256([]byte("ay"))
	require.Equal(t, "2019-05-06T07:08:09Z "+hex.EncodeToString(sum[:])+" /a.txt", lines[0])
	require.True(t, strings.HasSuffix(lines[1], " /b.txt"))
	require.True(t, strings.HasSuffix(lines[2], " /sub/c.txt"))
	require.NotContains(t, strings.Join(lines, "\n"), DefaultManifestName)

	// A second build rewrites instead of appending.
	build(t, app)
	require.Len(t, strings.Split(strings.TrimSuffix(read(t, app.Paths.BuildPath(m.File())), "\n"), "\n"), 3)
}

func TestManifest_RewrittenStaticUsesBuildMtime(t *testing.T) {
	app := newApp(t, map[string]string{
		"index.html": "static page",
		"a.txt":      "ay",
	})
	past := time.Date(2019, 5, 6, 7, 8, 9, 0, time.UTC)
	for _, rel := range []string{"index.html", "a.txt"} {
		require.NoError(t, os.Chtimes(app.Paths.StaticPath(rel), past, past))
	}
	app.Route("/", site.Callback(func(p *site.Page) error {
		p.Data["title"] = "rendered"
		return nil
	}))
	m, err := NewManifest(app, ManifestOptions{Hash: config.HashSHA256})
	require.NoError(t, err)
	app.Use(m)
	build(t, app)

	require.True(t, strings.HasPrefix(read(t, app.Paths.BuildPath("index.html")), "<!DOCTYPE html>"))
	out := read(t, app.Paths.BuildPath(m.File()))
	require.Contains(t, out, "2019-05-06T07:08:09Z ")
	for _, line := range strings.Split(strings.TrimSuffix(out, "\n"), "\n") {
		switch {
		case strings.HasSuffix(line, " /a.txt"):
			require.True(t, strings.HasPrefix(line, "2019-05-06T07:08:09Z "), line)
		case strings.HasSuffix(line, " /index.html"):
			require.False(t, strings.HasPrefix(line, "2019-"), line)
		}
	}
}

func TestManifest_ExcludeGenerated(t *testing.T) {
	app := newApp(t, map[string]string{"a.txt": "a"})
	m, err := NewManifest(app, ManifestOptions{Exclude: config.ExcludeGenerated})
	require.NoError(t, err)
	app.Use(NewSitemap(app, ""), m)
	build(t, app)

	out := read(t, app.Paths.BuildPath(DefaultManifestName))
	require.Contains(t, out, " /a.txt\n")
	require.NotContains(t, out, DefaultSitemapName)
}

func TestManifest_UnknownHash(t *testing.T) {
	app := newApp(t, nil)
	_, err := NewManifest(app, ManifestOptions{Hash: "md5"})
	require.Error(t, err)
}

func TestDigest_MatchesOneShot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.bin")
	data := bytes.Repeat([]byte("0123456789abcdef"), 4096)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	got, err := Digest(path, sha256.New)
	require.NoError(t, err)
	want := sha256.Sum256(data)
	require.Equal(t, hex.EncodeToString(want[:]), got)
}

func TestSitemap(t *testing.T) {
	app := newApp(t, map[string]string{"index.html": "i", "docs/a.txt": "a"})
	require.NoError(t, app.Config.Set("base", "https://example.org/"))
	past := time.Date(2018, 2, 3, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(app.Paths.StaticPath("index.html"), past, past))
	app.Use(NewSitemap(app, ""))
	build(t, app)

	out := read(t, app.Paths.BuildPath(DefaultSitemapName))
	require.True(t, strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`))
	require.Contains(t, out, `<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	require.Contains(t, out, "  <url>\n    <loc>https://example.org/index.html</loc>\n    <lastmod>2018-02-03</lastmod>\n    <changefreq>monthly</changefreq>\n    <priority>1.0</priority>\n  </url>")
	require.Contains(t, out, "<loc>https://example.org/sitemap.xml</loc>")
	require.Contains(t, out, "<priority>0.9</priority>")
	require.Contains(t, out, "<loc>https://example.org/docs/a.txt</loc>")
	require.Contains(t, out, "<priority>0.5</priority>")
}

func TestArchive_RoundTrip(t *testing.T) {
	static := map[string]string{"a.txt": "alpha", "sub/b.txt": "beta"}
	for _, format := range []string{config.FormatZip, config.FormatTarGz, config.FormatTarZst} {
		t.Run(format, func(t *testing.T) {
			app := newApp(t, static)
			a, err := NewArchive(app, ArchiveOptions{Format: format})
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(a.File(), "archive_"))
			require.True(t, strings.HasSuffix(a.File(), "."+format))
			app.Use(a)
			build(t, app)

			got := extract(t, format, app.Paths.BuildPath(a.File()))
			require.Equal(t, static, got)
		})
	}
}

func TestArchive_Relocate(t *testing.T) {
	app := newApp(t, map[string]string{"a.txt": "alpha"})
	a, err := NewArchive(app, ArchiveOptions{Format: config.FormatZip, File: "site.zip"})
	require.NoError(t, err)
	a.Relocate("dist/site.zip")
	app.Use(a)
	build(t, app)

	require.False(t, app.Files().Has("site.zip"))
	require.NoFileExists(t, app.Paths.BuildPath("site.zip"))
	got := extract(t, config.FormatZip, app.Paths.BuildPath("dist/site.zip"))
	require.Equal(t, map[string]string{"a.txt": "alpha"}, got)
}

func TestArchive_UnknownFormat(t *testing.T) {
	app := newApp(t, nil)
	_, err := NewArchive(app, ArchiveOptions{Format: "rar"})
	require.Error(t, err)
}

func TestDefaultArchiveName(t *testing.T) {
	now := time.Date(2024, 12, 31, 23, 0, 0, 0, time.FixedZone("x", -3*3600))
	require.Equal(t, "archive_2025-01-01.tar.gz", DefaultArchiveName(config.FormatTarGz, now))
}

func TestTree(t *testing.T) {
	snap := listing.Snapshot{
		{Rel: "", Dirs: []string{"docs"}, Files: []string{"a.txt", "index.html"}},
		{Rel: "docs", Dirs: []string{"img"}, Files: []string{"x.html"}},
		{Rel: "docs/img", Files: []string{"p.png"}},
	}
	want := "/\n" +
		"|-- a.txt\n" +
		"|-- docs/\n" +
		"|   |-- img/\n" +
		"|   |   `-- p.png\n" +
		"|   `-- x.html\n" +
		"`-- index.html\n" +
		"\n2 directories, 4 files"
	require.Equal(t, want, Tree(snap))
}

func TestSitetree_Written(t *testing.T) {
	app := newApp(t, map[string]string{"a.txt": "a"})
	app.Use(NewSitetree(app, "tree.txt"))
	build(t, app)

	require.Equal(t, "/\n|-- a.txt\n`-- tree.txt\n\n0 directories, 2 files", read(t, app.Paths.BuildPath("tree.txt")))
}

func extract(t *testing.T, format, path string) map[string]string {
	t.Helper()
	out := map[string]string{}
	switch format {
	case config.FormatZip:
		zr, err := zip.OpenReader(path)
		require.NoError(t, err)
		defer zr.Close()
		for _, f := range zr.File {
			rc, err := f.Open()
			require.NoError(t, err)
			b, err := io.ReadAll(rc)
			require.NoError(t, err)
			require.NoError(t, rc.Close())
			out[f.Name] = string(b)
		}
		return out
	default:
		f, err := os.Open(path) // #nosec G304 -- test path
		require.NoError(t, err)
		defer f.Close()
		var r io.Reader
		if format == config.FormatTarGz {
			gz, err := gzip.NewReader(f)
			require.NoError(t, err)
			r = gz
		} else {
			zr, err := zstd.NewReader(f)
			require.NoError(t, err)
			defer zr.Close()
			r = zr
		}
		tr := tar.NewReader(r)
		for {
			hdr, err := tr.Next()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			b, err := io.ReadAll(tr)
			require.NoError(t, err)
			out[hdr.Name] = string(b)
		}
		return out
	}
}
