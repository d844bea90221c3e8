package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyPhase      = "phase"
	KeyHook       = "hook"
	KeyRoute      = "route"
	KeyPath       = "path"
	KeyTemplate   = "template"
	KeyFiles      = "files"
	KeyDurationMS = "duration_ms"
	KeyProject    = "project"
	KeyOutcome    = "outcome"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Phase(name string) slog.Attr     { return slog.String(KeyPhase, name) }
func Hook(name string) slog.Attr      { return slog.String(KeyHook, name) }
func Route(r string) slog.Attr        { return slog.String(KeyRoute, r) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Template(t string) slog.Attr     { return slog.String(KeyTemplate, t) }
func Files(n int) slog.Attr           { return slog.Int(KeyFiles, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Project(p string) slog.Attr      { return slog.String(KeyProject, p) }
func Outcome(o string) slog.Attr      { return slog.String(KeyOutcome, o) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
