// Package errors provides a structured error type (NoiseError) for
// category-based classification of build failures and CLI exit codes.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCategory classifies a NoiseError.
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Build and processing errors
	CategoryTemplate   ErrorCategory = "template"
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryArchive    ErrorCategory = "archive"
	CategoryHook       ErrorCategory = "hook"
	CategoryBuild      ErrorCategory = "build"

	// Runtime and infrastructure errors
	CategoryRuntime  ErrorCategory = "runtime"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// ContextFields carries structured context for NoiseError.
type ContextFields map[string]any

// NoiseError is a structured error with category, severity, and context.
type NoiseError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// Error implements the error interface
func (e *NoiseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *NoiseError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *NoiseError) WithContext(key string, value any) *NoiseError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new NoiseError
func New(category ErrorCategory, severity ErrorSeverity, message string) *NoiseError {
	return &NoiseError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new NoiseError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *NoiseError {
	return &NoiseError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// As returns the outermost NoiseError in err's chain.
func As(err error) (*NoiseError, bool) {
	var ne *NoiseError
	if stderrors.As(err, &ne) {
		return ne, true
	}
	return nil, false
}

// IsCategory checks if an error, or anything it wraps, carries category.
func IsCategory(err error, category ErrorCategory) bool {
	for err != nil {
		var ne *NoiseError
		if !stderrors.As(err, &ne) {
			return false
		}
		if ne.Category == category {
			return true
		}
		err = ne.Cause
	}
	return false
}

// Innermost returns the deepest NoiseError in err's chain, which names the
// most specific failure (a missing template rather than the build it failed).
func Innermost(err error) (*NoiseError, bool) {
	var last *NoiseError
	for err != nil {
		var ne *NoiseError
		if !stderrors.As(err, &ne) {
			break
		}
		last = ne
		err = ne.Cause
	}
	return last, last != nil
}

// GetCategory extracts the category of the outermost NoiseError, or
// CategoryInternal if there is none.
func GetCategory(err error) ErrorCategory {
	if ne, ok := As(err); ok {
		return ne.Category
	}
	return CategoryInternal
}
