package hooks

import (
	"context"
	"encoding/xml"
	"log/slog"
	"os"
	"path"
	"strings"

	nerrors "git.home.luguber.info/inful/noise/internal/errors"
	"git.home.luguber.info/inful/noise/internal/logfields"
	"git.home.luguber.info/inful/noise/internal/site"
)

// DefaultSitemapName is the sitemap file written when none is configured.
const DefaultSitemapName = "sitemap.xml"

// SitemapNamespace is the sitemaps.org schema namespace.
const SitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

type urlset struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

// Sitemap writes an XML sitemap listing every output file.
type Sitemap struct {
	RenderedFile
	indexName string
}

// NewSitemap declares the sitemap file in app and returns the hook.
func NewSitemap(app *site.App, file string) *Sitemap {
	if file == "" {
		file = DefaultSitemapName
	}
	return &Sitemap{RenderedFile: newRenderedFile(app, file), indexName: app.IndexName()}
}

// Name implements site.Hook.
func (s *Sitemap) Name() string { return "sitemap" }

// Postrender writes the sitemap from a walk of the finished tree.
func (s *Sitemap) Postrender(_ context.Context, b *site.Build) error {
	snap, err := b.Snapshot()
	if err != nil {
		return nerrors.FilesystemError("walk build tree", err)
	}
	base := strings.TrimSuffix(b.Base, "/")
	doc := urlset{Xmlns: SitemapNamespace}
	for _, rel := range snap.Files() {
		ts, err := b.ModTime(rel)
		if err != nil {
			return nerrors.FilesystemError("stat output file", err).WithContext("path", rel)
		}
		doc.URLs = append(doc.URLs, sitemapURL{
			Loc:        base + "/" + rel,
			LastMod:    ts.UTC().Format("2006-01-02"),
			ChangeFreq: "monthly",
			Priority:   s.priority(rel),
		})
	}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nerrors.InternalError("encode sitemap", err)
	}
	data := append([]byte(xml.Header), out...)
	data = append(data, '\n')
	if err := os.WriteFile(s.Path(b), data, 0o644); err != nil { // #nosec G306 -- public site output
		return nerrors.FilesystemError("write sitemap", err)
	}
	slog.Debug("Sitemap written", logfields.BuildID(b.ID), logfields.Path(s.File()), logfields.Files(len(doc.URLs)))
	return nil
}

func (s *Sitemap) priority(rel string) string {
	switch {
	case rel == s.File():
		return "0.9"
	case path.Base(rel) == s.indexName:
		return "1.0"
	default:
		return "0.5"
	}
}
