package errors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
)

// ExitCodes maps error categories to process exit codes. Unclassified errors
// exit with 1.
var ExitCodes = map[ErrorCategory]int{
	CategoryValidation: 2,
	CategoryConfig:     7,
	CategoryTemplate:   9,
	CategoryHook:       9,
	CategoryInternal:   10,
	CategoryBuild:      11,
	CategoryFileSystem: 11,
	CategoryArchive:    11,
	CategoryRuntime:    12,
}

// CLIErrorAdapter turns errors returned by commands into terminal output and
// an exit code.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
	out     io.Writer
}

// NewCLIErrorAdapter creates an adapter printing to stderr. A nil logger uses
// slog.Default.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{verbose: verbose, logger: logger, out: os.Stderr}
}

// ExitCodeFor returns 0 for nil, the category code of the innermost
// NoiseError in the chain, and 1 otherwise.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if ne, ok := Innermost(err); ok {
		if code, ok := ExitCodes[ne.Category]; ok {
			return code
		}
	}
	return 1
}

// FormatError renders err as one line: the message, its context as sorted
// key=value pairs, then the cause. Verbose mode prints the full error chain.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	ne, ok := As(err)
	if !ok {
		return "Error: " + err.Error()
	}
	if a.verbose {
		return err.Error()
	}
	var b strings.Builder
	b.WriteString(ne.Message)
	for _, k := range slices.Sorted(maps.Keys(ne.Context)) {
		_, _ = fmt.Fprintf(&b, " %s=%v", k, ne.Context[k])
	}
	if ne.Cause != nil {
		_, _ = fmt.Fprintf(&b, ": %v", ne.Cause)
	}
	return b.String()
}

// Report prints err and returns the exit code to use. Internal and runtime
// errors are also logged with their context.
func (a *CLIErrorAdapter) Report(err error) int {
	if err == nil {
		return 0
	}
	if a.shouldLog(err) {
		a.log(err)
	}
	_, _ = fmt.Fprintln(a.out, a.FormatError(err))
	return a.ExitCodeFor(err)
}

func (a *CLIErrorAdapter) shouldLog(err error) bool {
	if a.verbose {
		return true
	}
	ne, ok := As(err)
	if !ok {
		return false
	}
	return ne.Category == CategoryInternal || ne.Category == CategoryRuntime
}

func (a *CLIErrorAdapter) log(err error) {
	ne, ok := As(err)
	if !ok {
		a.logger.Error("Command failed", "error", err)
		return
	}
	attrs := []slog.Attr{slog.String("category", string(ne.Category))}
	for _, k := range slices.Sorted(maps.Keys(ne.Context)) {
		attrs = append(attrs, slog.Any(k, ne.Context[k]))
	}
	level := slog.LevelError
	switch ne.Severity {
	case SeverityInfo:
		level = slog.LevelInfo
	case SeverityWarning:
		level = slog.LevelWarn
	}
	a.logger.LogAttrs(context.Background(), level, ne.Message, attrs...)
}
