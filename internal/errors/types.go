// Package errors defines the typed error taxonomy shared by every stage of
// the concatenation pipeline.
//
// Fatal conditions are returned as *ConcatError values so hosts can decide
// how to report them; best-effort conditions are logged by the component
// that hit them and never reach this package.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeResolution ErrorType = "resolution"
	ErrorTypeRead       ErrorType = "read"
	ErrorTypeMinify     ErrorType = "minify"
	ErrorTypeEmit       ErrorType = "emit"
	ErrorTypeInternal   ErrorType = "internal"
)

// Common error codes.
const (
	ErrCodeConfigInvalid     = "ERR_CONFIG_INVALID"
	ErrCodeNoInputs          = "ERR_NO_INPUTS"
	ErrCodeGlobFailed        = "ERR_GLOB_FAILED"
	ErrCodeUnresolved        = "ERR_UNRESOLVED"
	ErrCodeReadFailed        = "ERR_READ_FAILED"
	ErrCodeMinifyFailed      = "ERR_MINIFY_FAILED"
	ErrCodeEmitFailed        = "ERR_EMIT_FAILED"
	ErrCodeUnsupportedHash   = "ERR_UNSUPPORTED_HASH"
	ErrCodeUnsupportedDigest = "ERR_UNSUPPORTED_DIGEST"
	ErrCodeInternalError     = "ERR_INTERNAL"
)

// Sentinels for errors.Is checks against a whole category.
var (
	ErrConfig     = &ConcatError{Type: ErrorTypeConfig}
	ErrResolution = &ConcatError{Type: ErrorTypeResolution}
	ErrRead       = &ConcatError{Type: ErrorTypeRead}
	ErrMinify     = &ConcatError{Type: ErrorTypeMinify}
	ErrEmit       = &ConcatError{Type: ErrorTypeEmit}
)

// ConcatError is a structured error type with context.
type ConcatError struct {
	Type     ErrorType
	Code     string
	Message  string
	Cause    error
	Context  map[string]interface{}
	Plugin   string
	FilePath string
}

// Error implements the error interface.
func (e *ConcatError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Plugin != "" {
		parts = append(parts, "plugin:"+e.Plugin)
	}

	if e.FilePath != "" {
		parts = append(parts, e.FilePath)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *ConcatError) Unwrap() error {
	return e.Cause
}

// Is matches on type, and on code when the target carries one.
func (e *ConcatError) Is(target error) bool {
	var t *ConcatError
	if !errors.As(target, &t) {
		return false
	}
	if e.Type != t.Type {
		return false
	}

	return t.Code == "" || e.Code == t.Code
}

// WithContext adds context information to the error.
func (e *ConcatError) WithContext(key string, value interface{}) *ConcatError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithFile records the file the error refers to.
func (e *ConcatError) WithFile(path string) *ConcatError {
	e.FilePath = path

	return e
}

// WithPlugin records the plugin instance name.
func (e *ConcatError) WithPlugin(name string) *ConcatError {
	e.Plugin = name

	return e
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *ConcatError {
	return &ConcatError{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
	}
}

// NewResolutionError creates an error for a specifier that could not be resolved.
func NewResolutionError(specifier string, cause error) *ConcatError {
	return &ConcatError{
		Type:    ErrorTypeResolution,
		Code:    ErrCodeUnresolved,
		Message: "cannot resolve " + specifier,
		Cause:   cause,
	}
}

// NewReadError creates an I/O error for an input file.
func NewReadError(path string, cause error) *ConcatError {
	return &ConcatError{
		Type:     ErrorTypeRead,
		Code:     ErrCodeReadFailed,
		Message:  "failed to read input",
		Cause:    cause,
		FilePath: path,
	}
}

// NewMinifyError creates a minification failure.
func NewMinifyError(message string, cause error) *ConcatError {
	return &ConcatError{
		Type:    ErrorTypeMinify,
		Code:    ErrCodeMinifyFailed,
		Message: message,
		Cause:   cause,
	}
}

// NewEmitError creates an error for an artifact the host failed to write.
func NewEmitError(path string, cause error) *ConcatError {
	return &ConcatError{
		Type:     ErrorTypeEmit,
		Code:     ErrCodeEmitFailed,
		Message:  "failed to emit asset",
		Cause:    cause,
		FilePath: path,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *ConcatError {
	return &ConcatError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsType reports whether err is a ConcatError of the given type.
func IsType(err error, t ErrorType) bool {
	var ce *ConcatError
	if errors.As(err, &ce) {
		return ce.Type == t
	}

	return false
}
