package config

import (
	"encoding/json"
	"fmt"
	"slices"

	nerrors "git.home.luguber.info/inful/noise/internal/errors"
)

// Template engines.
const (
	EngineHandlebars = "handlebars"
	EngineMustache   = "mustache"
)

// Manifest digest algorithms.
const (
	HashSHA512 = "sha512"
	HashSHA256 = "sha256"
)

// Exclusion policies for generated files.
const (
	// ExcludeSelf makes the manifest and archives skip only their own file.
	ExcludeSelf = "self"
	// ExcludeGenerated makes them skip every generator-declared file.
	ExcludeGenerated = "generated"
)

// Archive formats.
const (
	FormatZip    = "zip"
	FormatTarGz  = "tar.gz"
	FormatTarZst = "tar.zst"
)

// RouteSpec declares a route in config.json.
type RouteSpec struct {
	Template    string         `json:"template,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	Passthrough bool           `json:"passthrough,omitempty"`
}

// ArchiveSpec declares an archive to produce.
type ArchiveSpec struct {
	Format string `json:"format"`
	File   string `json:"file,omitempty"`
}

// Settings is the typed view of the configuration used to wire a build.
type Settings struct {
	Base              string               `json:"base"`
	Ignore            []string             `json:"ignore"`
	Index             string               `json:"index"`
	Engine            string               `json:"engine"`
	Autoindex         bool                 `json:"autoindex"`
	Manifest          string               `json:"manifest,omitempty"`
	ManifestHash      string               `json:"manifest_hash"`
	Sitemap           string               `json:"sitemap,omitempty"`
	Sitetree          string               `json:"sitetree,omitempty"`
	Archives          []ArchiveSpec        `json:"archives,omitempty"`
	ExcludeGenerated  string               `json:"exclude_generated"`
	Routes            map[string]RouteSpec `json:"routes,omitempty"`
	DiscoverTemplates bool                 `json:"discover_templates"`
	History           bool                 `json:"history"`
}

// DefaultSettings returns the settings used for keys absent from config.json.
func DefaultSettings() Settings {
	return Settings{
		Ignore:            []string{".*"},
		Index:             "index.html",
		Engine:            EngineHandlebars,
		Autoindex:         true,
		ManifestHash:      HashSHA512,
		ExcludeGenerated:  ExcludeSelf,
		DiscoverTemplates: true,
	}
}

// Settings decodes the effective configuration over DefaultSettings and
// validates it.
func (s *Store) Settings() (Settings, error) {
	out := DefaultSettings()
	raw, err := json.Marshal(s.Map())
	if err != nil {
		return out, nerrors.ConfigInvalid(s.path, err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return DefaultSettings(), nerrors.ConfigInvalid(s.path, err)
	}
	if err := out.Validate(); err != nil {
		return out, err
	}
	return out, nil
}

// Validate checks enumerated values.
func (st Settings) Validate() error {
	if !slices.Contains([]string{EngineHandlebars, EngineMustache}, st.Engine) {
		return invalid("engine", fmt.Sprintf("unknown engine %q", st.Engine))
	}
	if !slices.Contains([]string{HashSHA512, HashSHA256}, st.ManifestHash) {
		return invalid("manifest_hash", fmt.Sprintf("unsupported hash %q", st.ManifestHash))
	}
	if !slices.Contains([]string{ExcludeSelf, ExcludeGenerated}, st.ExcludeGenerated) {
		return invalid("exclude_generated", fmt.Sprintf("unknown policy %q", st.ExcludeGenerated))
	}
	if st.Index == "" {
		return invalid("index", "must not be empty")
	}
	for i, a := range st.Archives {
		if !slices.Contains([]string{FormatZip, FormatTarGz, FormatTarZst}, a.Format) {
			return invalid(fmt.Sprintf("archives[%d].format", i), fmt.Sprintf("unknown format %q", a.Format))
		}
	}
	return nil
}

func invalid(field, reason string) error {
	return nerrors.New(nerrors.CategoryConfig, nerrors.SeverityFatal, "configuration invalid").
		WithContext("field", field).
		WithContext("reason", reason)
}
