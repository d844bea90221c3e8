package markdown

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/noise/internal/frontmatter"
)

// Page is a markdown content file converted for rendering.
type Page struct {
	Source      string // content-relative slash path
	Route       string
	Template    string
	Title       string
	Fields      map[string]any
	HTML        string
	TOC         string
	Fingerprint string
}

// Data returns the template data for the page: the front matter fields plus
// title, body, toc and fingerprint.
func (p Page) Data() map[string]any {
	out := make(map[string]any, len(p.Fields)+4)
	for k, v := range p.Fields {
		out[k] = v
	}
	out["title"] = p.Title
	out["body"] = p.HTML
	out["toc"] = p.TOC
	out["fingerprint"] = p.Fingerprint
	return out
}

// LoadPages converts every *.md file under dir, in path order. A missing dir
// yields no pages. Pages with "draft: true" are skipped.
//
// Front matter may set "route" and "template"; otherwise content/a/b.md maps
// to /a/b.html and content/a/index.md to /a/.
func (c *Converter) LoadPages(dir string) ([]Page, error) {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	var sources []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(p), ".md") && !strings.HasPrefix(d.Name(), ".") {
			sources = append(sources, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk content: %w", err)
	}
	sort.Strings(sources)

	pages := make([]Page, 0, len(sources))
	for _, src := range sources {
		rel, err := filepath.Rel(dir, src)
		if err != nil {
			return nil, err
		}
		page, keep, err := c.loadPage(src, filepath.ToSlash(rel))
		if err != nil {
			return nil, err
		}
		if keep {
			pages = append(pages, page)
		}
	}
	return pages, nil
}

func (c *Converter) loadPage(abs, rel string) (Page, bool, error) {
	raw, err := os.ReadFile(abs) // #nosec G304 -- content directory file
	if err != nil {
		return Page{}, false, fmt.Errorf("read %s: %w", rel, err)
	}
	doc, err := frontmatter.Parse(raw)
	if err != nil {
		return Page{}, false, fmt.Errorf("%s: %w", rel, err)
	}
	if draft, _ := doc.Fields["draft"].(bool); draft {
		return Page{}, false, nil
	}

	htmlBody, err := c.Convert(doc.Body)
	if err != nil {
		return Page{}, false, fmt.Errorf("%s: %w", rel, err)
	}
	canonical, err := frontmatter.Canonical(doc.Fields)
	if err != nil {
		return Page{}, false, fmt.Errorf("%s: %w", rel, err)
	}

	p := Page{
		Source:      rel,
		Route:       contentRoute(rel),
		Fields:      doc.Fields,
		HTML:        htmlBody,
		TOC:         c.TOC(doc.Body),
		Fingerprint: mdfp.CalculateFingerprintFromParts(canonical, string(doc.Body)),
	}
	if r, ok := doc.Fields["route"].(string); ok && r != "" {
		p.Route = r
	}
	if tpl, ok := doc.Fields["template"].(string); ok {
		p.Template = tpl
	}
	p.Title = pageTitle(doc.Fields, c.Headings(doc.Body), rel)
	return p, true, nil
}

func contentRoute(rel string) string {
	stem := strings.TrimSuffix(rel, path.Ext(rel))
	if path.Base(stem) == "index" {
		return "/" + strings.TrimSuffix(stem, "index")
	}
	return "/" + stem + ".html"
}

func pageTitle(fields map[string]any, hs []*Heading, rel string) string {
	if t, ok := fields["title"].(string); ok && t != "" {
		return t
	}
	for _, h := range hs {
		if h.Level == 1 {
			return h.Text
		}
	}
	return strings.TrimSuffix(path.Base(rel), path.Ext(rel))
}
