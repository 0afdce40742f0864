package errors

import (
	"fmt"
	"strings"
)

// Kind categorizes an error for retry and recovery decisions.
type Kind int

const (
	// KindConfig - missing or invalid configuration; fatal at startup
	KindConfig Kind = iota
	// KindTransientRemote - forge or LLM 5xx / timeout; retry once then skip the unit
	KindTransientRemote
	// KindRateLimited - forge 403/429; back off, surface if exhausted
	KindRateLimited
	// KindNotFound - 404 content fetch; record content_error on the file
	KindNotFound
	// KindParse - malformed LLM JSON after recovery attempts
	KindParse
	// KindSchemaViolation - vector dimension mismatch, coerced with a warning
	KindSchemaViolation
	// KindIngestSkip - fatal per-PR error; skip PR and continue
	KindIngestSkip
	// KindMartConflict - SQL upsert failure after per-row fallback
	KindMartConflict
	// KindQueryBad - malformed filter or unknown field on the query path
	KindQueryBad
	// KindInternal - unexpected internal state
	KindInternal
)

// Severity represents how critical an error is.
type Severity int

const (
	// SeverityLow - recovered locally, logged only
	SeverityLow Severity = iota
	// SeverityWarning - unit skipped or value coerced
	SeverityWarning
	// SeverityHigh - surfaced to the caller
	SeverityHigh
	// SeverityFatal - stops the process (startup misconfiguration)
	SeverityFatal
)

// Error is a structured error carrying kind, severity, and context.
type Error struct {
	Kind     Kind
	Severity Severity
	Message  string
	Cause    error
	Context  map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches on Kind so callers can branch with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithContext attaches a key/value pair to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// IsFatal reports whether this error should stop the process.
func (e *Error) IsFatal() bool { return e.Severity == SeverityFatal }

// DetailedString renders the error with its context for log output.
func (e *Error) DetailedString() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] [%s] %s", severityString(e.Severity), kindString(e.Kind), e.Message))
	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Cause))
	}
	for k, v := range e.Context {
		sb.WriteString(fmt.Sprintf(" %s=%v", k, v))
	}
	return sb.String()
}

func kindString(k Kind) string {
	switch k {
	case KindConfig:
		return "CONFIG"
	case KindTransientRemote:
		return "TRANSIENT_REMOTE"
	case KindRateLimited:
		return "RATE_LIMITED"
	case KindNotFound:
		return "NOT_FOUND"
	case KindParse:
		return "PARSE"
	case KindSchemaViolation:
		return "SCHEMA_VIOLATION"
	case KindIngestSkip:
		return "INGEST_SKIP"
	case KindMartConflict:
		return "MART_CONFLICT"
	case KindQueryBad:
		return "QUERY_BAD"
	default:
		return "INTERNAL"
	}
}

func severityString(s Severity) string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityWarning:
		return "WARNING"
	case SeverityHigh:
		return "HIGH"
	case SeverityFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// New creates an error with the given kind, severity, and message.
func New(kind Kind, severity Severity, message string) *Error {
	return &Error{Kind: kind, Severity: severity, Message: message}
}

// Wrap wraps an existing error; returns nil when err is nil.
func Wrap(err error, kind Kind, severity Severity, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Severity: severity, Message: message, Cause: err}
}

// ConfigError creates a fatal configuration error.
func ConfigError(message string) *Error {
	return New(KindConfig, SeverityFatal, message)
}

// ConfigErrorf creates a fatal configuration error with formatting.
func ConfigErrorf(format string, args ...any) *Error {
	return New(KindConfig, SeverityFatal, fmt.Sprintf(format, args...))
}

// TransientRemote wraps a retriable remote failure.
func TransientRemote(err error, message string) *Error {
	return Wrap(err, KindTransientRemote, SeverityWarning, message)
}

// RateLimited wraps a quota or rate-limit rejection.
func RateLimited(err error, message string) *Error {
	return Wrap(err, KindRateLimited, SeverityHigh, message)
}

// NotFound marks a missing remote resource.
func NotFound(message string) *Error {
	return New(KindNotFound, SeverityLow, message)
}

// NotFoundf marks a missing remote resource with formatting.
func NotFoundf(format string, args ...any) *Error {
	return New(KindNotFound, SeverityLow, fmt.Sprintf(format, args...))
}

// ParseError wraps an unrecoverable LLM JSON parse failure.
func ParseError(err error, message string) *Error {
	return Wrap(err, KindParse, SeverityLow, message)
}

// SchemaViolation marks a coerced vector dimension mismatch.
func SchemaViolation(message string) *Error {
	return New(KindSchemaViolation, SeverityWarning, message)
}

// IngestSkip wraps a fatal per-PR error that the pipeline skips over.
func IngestSkip(err error, message string) *Error {
	return Wrap(err, KindIngestSkip, SeverityWarning, message)
}

// MartConflict wraps a persistent relational upsert failure.
func MartConflict(err error, message string) *Error {
	return Wrap(err, KindMartConflict, SeverityWarning, message)
}

// QueryBad marks a malformed query-path request.
func QueryBad(message string) *Error {
	return New(KindQueryBad, SeverityHigh, message)
}

// QueryBadf marks a malformed query-path request with formatting.
func QueryBadf(format string, args ...any) *Error {
	return New(KindQueryBad, SeverityHigh, fmt.Sprintf(format, args...))
}

// Internal creates an internal error.
func Internal(message string) *Error {
	return New(KindInternal, SeverityHigh, message)
}

// Internalf creates an internal error with formatting.
func Internalf(format string, args ...any) *Error {
	return New(KindInternal, SeverityHigh, fmt.Sprintf(format, args...))
}

// IsFatal reports whether err should stop the process.
func IsFatal(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.IsFatal()
	}
	return false
}

// GetKind returns the kind of an error, KindInternal for foreign errors.
func GetKind(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return KindInternal
}

// GetSeverity returns the severity of an error.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityLow
	}
	if e, ok := err.(*Error); ok {
		return e.Severity
	}
	return SeverityWarning
}
