package markdown

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConvert(t *testing.T) {
	c := New()
	out, err := c.Convert([]byte("# Hello\n\n| a | b |\n|---|---|\n| 1 | 2 |\n"))
	require.NoError(t, err)
	require.Contains(t, out, `<h1 id="hello">Hello</h1>`)
	require.Contains(t, out, "<table>")
}

func TestHeadings_Nesting(t *testing.T) {
	c := New()
	hs := c.Headings([]byte("# One\n\n## Two *bold*\n\n### Three\n\n## Four\n\n# Five\n"))
	require.Len(t, hs, 2)
	require.Equal(t, "One", hs[0].Text)
	require.Equal(t, "one", hs[0].ID)
	require.Len(t, hs[0].Children, 2)
	require.Equal(t, "Two bold", hs[0].Children[0].Text)
	require.Len(t, hs[0].Children[0].Children, 1)
	require.Equal(t, "Five", hs[1].Text)
}

func TestTOC(t *testing.T) {
	c := New()
	toc := c.TOC([]byte("# A\n\n## B\n"))
	require.Equal(t, "<div class=\"toc\">\n<ul>\n<li><a href=\"#a\">A</a>\n<ul>\n<li><a href=\"#b\">B</a></li>\n</ul>\n</li>\n</ul>\n</div>", toc)
}

func writeContent(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestLoadPages(t *testing.T) {
	dir := t.TempDir()
	writeContent(t, dir, "index.md", "# Home\n\nWelcome.\n")
	writeContent(t, dir, "blog/post.md", "---\ntitle: Post\ntemplate: post.html\n---\nBody\n")
	writeContent(t, dir, "blog/draft.md", "---\ndraft: true\n---\nSecret\n")
	writeContent(t, dir, "about.md", "---\nroute: /about/\n---\nAbout us\n")
	writeContent(t, dir, "notes.txt", "ignored")

	pages, err := New().LoadPages(dir)
	require.NoError(t, err)
	require.Len(t, pages, 3)

	byRoute := map[string]Page{}
	for _, p := range pages {
		byRoute[p.Route] = p
	}
	require.Equal(t, "Home", byRoute["/"].Title)
	require.Equal(t, "post.html", byRoute["/blog/post.html"].Template)
	require.Equal(t, "Post", byRoute["/blog/post.html"].Title)
	require.Equal(t, "<p>Body</p>", byRoute["/blog/post.html"].HTML)
	require.Equal(t, "about", byRoute["/about/"].Title)
	require.NotEmpty(t, byRoute["/"].Fingerprint)

	data := byRoute["/blog/post.html"].Data()
	require.Equal(t, "Post", data["title"])
	require.Equal(t, "<p>Body</p>", data["body"])
}

func TestLoadPages_MissingDir(t *testing.T) {
	pages, err := New().LoadPages(filepath.Join(t.TempDir(), "content"))
	require.NoError(t, err)
	require.Empty(t, pages)
}

func TestLoadPages_FingerprintIsStable(t *testing.T) {
	dir := t.TempDir()
	writeContent(t, dir, "a.md", "---\nb: 2\na: 1\n---\ntext\n")
	first, err := New().LoadPages(dir)
	require.NoError(t, err)
	writeContent(t, dir, "a.md", "---\na: 1\nb: 2\n---\ntext\n")
	second, err := New().LoadPages(dir)
	require.NoError(t, err)
	require.Equal(t, first[0].Fingerprint, second[0].Fingerprint)
}
