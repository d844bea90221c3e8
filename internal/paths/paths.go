// Package paths resolves the fixed locations of a noise project and converts
// between absolute filesystem paths and output-relative forms.
package paths

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Conventional directory and file names inside a project.
const (
	BuildDir    = "build"
	StaticDir   = "static"
	TemplateDir = "template"
	ContentDir  = "content"
	StateDir    = ".noise"
	ConfigFile  = "config.json"
)

// Resolver maps logical project locations to absolute paths.
type Resolver struct {
	Root     string
	Static   string
	Template string
	Build    string
	Content  string
	State    string
	Config   string
}

// New resolves project (relative to the working directory when not absolute).
func New(project string) (*Resolver, error) {
	root, err := filepath.Abs(project)
	if err != nil {
		return nil, fmt.Errorf("resolve project path %q: %w", project, err)
	}
	return &Resolver{
		Root:     root,
		Static:   filepath.Join(root, StaticDir),
		Template: filepath.Join(root, TemplateDir),
		Build:    filepath.Join(root, BuildDir),
		Content:  filepath.Join(root, ContentDir),
		State:    filepath.Join(root, StateDir),
		Config:   filepath.Join(root, ConfigFile),
	}, nil
}

// Name returns the project name (base name of the root).
func (r *Resolver) Name() string { return filepath.Base(r.Root) }

// Local joins rel onto the project root.
func (r *Resolver) Local(rel string) string { return join(r.Root, rel) }

// BuildPath joins an output-relative path onto the build root.
func (r *Resolver) BuildPath(rel string) string { return join(r.Build, rel) }

// StaticPath joins an output-relative path onto the static source root.
func (r *Resolver) StaticPath(rel string) string { return join(r.Static, rel) }

// TemplatePath joins a template name onto the template root.
func (r *Resolver) TemplatePath(rel string) string { return join(r.Template, rel) }

// Relative returns the canonical output-relative form of abs ("/" for the build
// root, "/a/b.html" otherwise). Paths outside the build root are an error.
func (r *Resolver) Relative(abs string) (string, error) {
	rel, err := filepath.Rel(r.Build, abs)
	if err != nil {
		return "", fmt.Errorf("relative path for %s: %w", abs, err)
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("path %s is outside build root %s", abs, r.Build)
	}
	if rel == "." {
		return "/", nil
	}
	return "/" + rel, nil
}

// InTemplateRoot reports whether abs lies inside the template root.
func (r *Resolver) InTemplateRoot(abs string) bool {
	rel, err := filepath.Rel(r.Template, abs)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Init creates the project root and its source directories if missing.
func (r *Resolver) Init() error {
	for _, dir := range []string{r.Root, r.Static, r.Template} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// Clean converts any slash path to its output-relative form without a leading
// slash. The result never escapes the root; "" denotes the root itself.
func Clean(p string) string {
	p = path.Clean("/" + filepath.ToSlash(p))
	return strings.TrimPrefix(p, "/")
}

func join(root, rel string) string {
	rel = Clean(rel)
	if rel == "" {
		return root
	}
	return filepath.Join(root, filepath.FromSlash(rel))
}
