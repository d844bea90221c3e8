package testing

import (
	"os"
	"path/filepath"
	"testing"

	"git.home.luguber.info/inful/noise/internal/config"
	"git.home.luguber.info/inful/noise/internal/paths"
)

// ProjectBuilder provides a fluent interface for laying out a project on disk
type ProjectBuilder struct {
	t      *testing.T
	root   string
	config map[string]any
	files  map[string]string
}

// NewProjectBuilder creates a builder for a project in a fresh temp dir
func NewProjectBuilder(t *testing.T) *ProjectBuilder {
	t.Helper()
	return &ProjectBuilder{
		t:      t,
		root:   filepath.Join(t.TempDir(), "site"),
		config: config.Defaults(),
		files:  map[string]string{},
	}
}

// WithConfig sets a config.json key
func (pb *ProjectBuilder) WithConfig(key string, value any) *ProjectBuilder {
	pb.config[key] = value
	return pb
}

// WithRoute declares a route in config.json
func (pb *ProjectBuilder) WithRoute(route string, spec config.RouteSpec) *ProjectBuilder {
	routes, _ := pb.config["routes"].(map[string]any)
	if routes == nil {
		routes = map[string]any{}
		pb.config["routes"] = routes
	}
	entry := map[string]any{}
	if spec.Template != "" {
		entry["template"] = spec.Template
	}
	if spec.Data != nil {
		entry["data"] = spec.Data
	}
	if spec.Passthrough {
		entry["passthrough"] = true
	}
	routes[route] = entry
	return pb
}

// WithStatic adds a file under static/
func (pb *ProjectBuilder) WithStatic(rel, content string) *ProjectBuilder {
	pb.files[filepath.Join(paths.StaticDir, rel)] = content
	return pb
}

// WithTemplate adds a file under template/
func (pb *ProjectBuilder) WithTemplate(rel, content string) *ProjectBuilder {
	pb.files[filepath.Join(paths.TemplateDir, rel)] = content
	return pb
}

// WithContent adds a markdown file under content/
func (pb *ProjectBuilder) WithContent(rel, content string) *ProjectBuilder {
	pb.files[filepath.Join(paths.ContentDir, rel)] = content
	return pb
}

// WithFile adds an arbitrary file relative to the project root
func (pb *ProjectBuilder) WithFile(rel, content string) *ProjectBuilder {
	pb.files[rel] = content
	return pb
}

// Build writes the project and returns its resolved paths
func (pb *ProjectBuilder) Build() *paths.Resolver {
	pb.t.Helper()
	p, err := paths.New(pb.root)
	if err != nil {
		pb.t.Fatalf("Failed to resolve project: %v", err)
	}
	if err := p.Init(); err != nil {
		pb.t.Fatalf("Failed to create project: %v", err)
	}
	raw, err := config.Marshal(pb.config)
	if err != nil {
		pb.t.Fatalf("Failed to encode config: %v", err)
	}
	if err := os.WriteFile(p.Config, raw, testFilePermissions); err != nil {
		pb.t.Fatalf("Failed to write config: %v", err)
	}
	for rel, content := range pb.files {
		full := filepath.Join(p.Root, rel)
		if err := os.MkdirAll(filepath.Dir(full), testDirPermissions); err != nil {
			pb.t.Fatalf("Failed to create directory for %s: %v", rel, err)
		}
		if err := os.WriteFile(full, []byte(content), testFilePermissions); err != nil {
			pb.t.Fatalf("Failed to write %s: %v", rel, err)
		}
	}
	return p
}
