package site

import (
	"path"
	"sort"
	"strings"

	"git.home.luguber.info/inful/noise/internal/files"
)

// NormalizeRoute maps a declared route to the output path it produces:
// the path is cleaned and rooted, a directory route ("/", trailing "/", "."
// or "..") gets "index" appended, and a final segment without an extension
// gets ".html". Leading dots of a name do not count as an extension.
// NormalizeRoute is idempotent.
func NormalizeRoute(raw string) string {
	r := path.Clean("/" + raw)
	base := path.Base(raw)
	if r == "/" || strings.HasSuffix(raw, "/") || base == "." || base == ".." {
		r = path.Join(r, "index")
	}
	if path.Ext(strings.TrimLeft(path.Base(r), ".")) == "" {
		r += ".html"
	}
	return r
}

// Producer yields the page for a route. It is either a Callback or a
// prebuilt *Page.
type Producer interface {
	producer()
}

// Callback customizes a freshly created page during the render phase. It may
// set Template, Data or Passthrough, or render the page itself.
type Callback func(*Page) error

func (Callback) producer() {}

// Route pairs a normalized output path with its producer.
type Route struct {
	Path     string
	Producer Producer
}

// Routes is the route table. Adding a route tracks its output file in the
// bound registry. Re-adding a path replaces the previous producer.
type Routes struct {
	entries  map[string]Producer
	registry *files.Registry
}

// NewRoutes returns an empty table tracking into reg.
func NewRoutes(reg *files.Registry) *Routes {
	return &Routes{entries: map[string]Producer{}, registry: reg}
}

// Add normalizes raw, tracks the output file and stores p. It returns the
// normalized path.
func (r *Routes) Add(raw string, p Producer) string {
	key := NormalizeRoute(raw)
	if r.registry != nil {
		r.registry.Track(key)
	}
	r.entries[key] = p
	return key
}

// Has reports whether a route with the given (raw or normalized) path exists.
func (r *Routes) Has(raw string) bool {
	_, ok := r.entries[NormalizeRoute(raw)]
	return ok
}

// Get returns the producer for raw.
func (r *Routes) Get(raw string) (Producer, bool) {
	p, ok := r.entries[NormalizeRoute(raw)]
	return p, ok
}

// Len returns the number of routes.
func (r *Routes) Len() int { return len(r.entries) }

// Resolve returns every route sorted by path.
func (r *Routes) Resolve() []Route {
	out := make([]Route, 0, len(r.entries))
	for k, p := range r.entries {
		out = append(out, Route{Path: k, Producer: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// cloneInto copies the table onto reg without re-tracking.
func (r *Routes) cloneInto(reg *files.Registry) *Routes {
	c := &Routes{entries: make(map[string]Producer, len(r.entries)), registry: reg}
	for k, p := range r.entries {
		c.entries[k] = p
	}
	return c
}
