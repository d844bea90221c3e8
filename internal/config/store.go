// Package config holds the project configuration: a JSON key/value store
// persisted at <project>/config.json and a typed Settings view decoded from it.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"git.home.luguber.info/inful/noise/internal/logfields"
)

// KeyBase is the URL prefix prepended to sitemap locations and exposed to
// templates.
const KeyBase = "base"

// EnvBase overrides the configured base without persisting it.
const EnvBase = "NOISE_BASE"

// Defaults returns the configuration written for a fresh project.
func Defaults() map[string]any {
	return map[string]any{KeyBase: ""}
}

// Store is a JSON-backed configuration map. Every mutation is written back to
// disk immediately. Safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	path      string
	data      map[string]any
	overrides map[string]any
}

// Load reads the configuration at path. A missing or unparsable file yields
// the defaults and a logged warning; Load never fails.
func Load(path string) *Store {
	s := &Store{path: path, data: Defaults(), overrides: map[string]any{}}

	raw, err := os.ReadFile(path) // #nosec G304 -- project config path
	switch {
	case os.IsNotExist(err):
		slog.Warn("Configuration file not found, using defaults", logfields.Path(path))
	case err != nil:
		slog.Warn("Configuration file unreadable, using defaults", logfields.Path(path), logfields.Error(err))
	default:
		expanded := os.ExpandEnv(string(raw))
		var parsed map[string]any
		dec := json.NewDecoder(strings.NewReader(expanded))
		dec.UseNumber()
		if err := dec.Decode(&parsed); err != nil || parsed == nil {
			if err == nil {
				err = fmt.Errorf("top-level value is not an object")
			}
			slog.Warn("Configuration file corrupt, using defaults", logfields.Path(path), logfields.Error(err))
		} else {
			s.data = parsed
		}
	}

	s.data[KeyBase] = normalizeBase(s.data[KeyBase])
	if v, ok := os.LookupEnv(EnvBase); ok {
		s.overrides[KeyBase] = normalizeBase(v)
	}
	return s
}

// LoadProject loads the project's .env files and then its config.json.
func LoadProject(dir, configPath string) *Store {
	if loaded, err := LoadEnv(dir); err != nil {
		slog.Warn("Failed to load environment file", logfields.Error(err))
	} else if len(loaded) > 0 {
		slog.Debug("Loaded environment files", slog.Any("files", loaded))
	}
	return Load(configPath)
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Get returns the value for key.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.overrides[key]; ok {
		return v, true
	}
	v, ok := s.data[key]
	return v, ok
}

// GetString returns the value for key formatted as a string, or "" when the
// key is absent or null.
func (s *Store) GetString(key string) string {
	v, ok := s.Get(key)
	if !ok || v == nil {
		return ""
	}
	if str, isStr := v.(string); isStr {
		return str
	}
	return fmt.Sprint(v)
}

// Set stores value under key and saves the file.
func (s *Store) Set(key string, value any) error {
	return s.Update(map[string]any{key: value})
}

// Update merges values into the store and saves the file once.
func (s *Store) Update(values map[string]any) error {
	s.mu.Lock()
	for k, v := range values {
		if k == KeyBase {
			v = normalizeBase(v)
		}
		s.data[k] = v
	}
	s.mu.Unlock()
	return s.Save()
}

// Map returns a copy of the effective configuration, overrides applied.
func (s *Store) Map() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.data)+len(s.overrides))
	for k, v := range s.data {
		out[k] = v
	}
	for k, v := range s.overrides {
		out[k] = v
	}
	return out
}

// Save writes the stored configuration pretty-printed with sorted keys and a
// four-space indent. Overrides are not persisted.
func (s *Store) Save() error {
	s.mu.RLock()
	buf, err := Marshal(s.data)
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

// Marshal renders a configuration map in the on-disk format.
func Marshal(data map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

func normalizeBase(v any) string {
	s, _ := v.(string)
	return strings.TrimRight(s, "/")
}
