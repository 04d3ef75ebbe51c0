// Package errors provides structured error types for crateship.
// It implements error classification, wrapping, and redaction of secrets
// that subprocesses may echo back.
package errors

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Kind represents the category of an error.
type Kind uint8

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown Kind = iota
	// KindConfig indicates a configuration error.
	KindConfig
	// KindPrecondition indicates the repository is not in a releasable state.
	KindPrecondition
	// KindFormat indicates malformed input such as a bad version string.
	KindFormat
	// KindNoProgress indicates a step that was expected to change something did not.
	KindNoProgress
	// KindExternal indicates a subprocess or remote service failed.
	KindExternal
	// KindContinuation indicates a continuation was requested without a release in flight.
	KindContinuation
	// KindGit indicates a git operation error.
	KindGit
	// KindIO indicates a file I/O error.
	KindIO
	// KindState indicates an illegal release state transition.
	KindState
	// KindCanceled indicates the operation was canceled.
	KindCanceled
	// KindInternal indicates an internal error.
	KindInternal
)

// String returns a human-readable string for the error kind.
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "configuration"
	case KindPrecondition:
		return "precondition"
	case KindFormat:
		return "format"
	case KindNoProgress:
		return "no_progress"
	case KindExternal:
		return "external"
	case KindContinuation:
		return "continuation"
	case KindGit:
		return "git"
	case KindIO:
		return "io"
	case KindState:
		return "state"
	case KindCanceled:
		return "canceled"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is the standard error type for crateship.
type Error struct {
	// Kind is the category of the error.
	Kind Kind
	// Op is the operation being performed when the error occurred.
	Op string
	// Message is a human-readable error message.
	Message string
	// Err is the underlying error.
	Err error
	// Details contains additional context about the error.
	Details map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches this error.
// A target without Op matches on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op == "" {
		return e.Kind == t.Kind
	}
	return e.Kind == t.Kind && e.Op == t.Op
}

// WithDetail adds a single detail to the error and returns the modified error.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new Error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a new Error with the given kind and formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with additional context.
func Wrap(err error, kind Kind, op string, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// Wrapf wraps an existing error with a formatted message.
func Wrapf(err error, kind Kind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...), Err: err}
}

// GetKind returns the Kind of the outermost *Error in the chain.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind checks if an error is of a specific kind.
func IsKind(err error, kind Kind) bool {
	return GetKind(err) == kind
}

// Config creates a configuration error.
func Config(op, message string) *Error {
	return &Error{Kind: KindConfig, Op: op, Message: message}
}

// ConfigWrap wraps an error as a configuration error.
func ConfigWrap(err error, op, message string) *Error {
	return Wrap(err, KindConfig, op, message)
}

// GitWrap wraps an error as a git error.
func GitWrap(err error, op, message string) *Error {
	return Wrap(err, KindGit, op, message)
}

// IOWrap wraps an error as an I/O error.
func IOWrap(err error, op, message string) *Error {
	return Wrap(err, KindIO, op, message)
}

// Precondition creates a precondition error.
func Precondition(op, message string) *Error {
	return &Error{Kind: KindPrecondition, Op: op, Message: message}
}

// ExternalWrap wraps a subprocess or remote failure with secrets redacted.
func ExternalWrap(err error, op, message string) *Error {
	return WrapSafe(err, KindExternal, op, message)
}

// Sensitive data redaction patterns.
var sensitivePatterns = []*regexp.Regexp{
	// crates.io API tokens
	regexp.MustCompile(`\bcio[a-zA-Z0-9]{32,}\b`),
	// GitHub tokens: ghp_..., gho_..., ghs_..., ghr_...
	regexp.MustCompile(`\bgh[posh]_[a-zA-Z0-9]{36,}\b`),
	// Generic bearer tokens
	regexp.MustCompile(`\bBearer\s+[a-zA-Z0-9_-]{20,}\b`),
	// --token arguments echoed in command lines
	regexp.MustCompile(`--token[= ]\S+`),
	// Basic auth with password in URL
	regexp.MustCompile(`://[^:/\s]+:[^@/\s]+@`),
}

// RedactSensitive removes tokens and credentials from s.
func RedactSensitive(s string) string {
	result := s
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, "[REDACTED]")
	}
	return result
}

// redactedError reports a redacted message but keeps the original chain for
// errors.Is and errors.As.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

// RedactError returns err with sensitive data redacted from its message.
// If the error is nil, returns nil.
func RedactError(err error) error {
	if err == nil {
		return nil
	}
	redacted := RedactSensitive(err.Error())
	if redacted == err.Error() {
		return err
	}
	return &redactedError{msg: redacted, err: err}
}

// WrapSafe wraps an error with sensitive data redacted.
func WrapSafe(err error, kind Kind, op, message string) *Error {
	message = RedactSensitive(message)
	if err == nil {
		return &Error{Kind: kind, Op: op, Message: message}
	}
	return Wrap(RedactError(err), kind, op, message)
}

// IsSensitive checks if a string contains sensitive patterns.
func IsSensitive(s string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(s) {
			return true
		}
	}
	lower := strings.ToLower(s)
	return strings.Contains(lower, "password") || strings.Contains(lower, "token")
}
