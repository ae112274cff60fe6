// Package errors provides a structured error type with wrapping and metadata
package errors

// Always import the project errors package as perr (platform/errors)

import (
	stderrs "errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode defines supported error codes used across the pipeline
// Values are stable for wire compatibility; add sparingly
type ErrorCode uint16

const (
	// ErrorCodeUnknown is for unclassified errors
	ErrorCodeUnknown ErrorCode = iota

	// ErrorCodePanic is for panics recovered by middleware
	ErrorCodePanic

	// ErrorCodeAdmissionRejected is for callers over their inbound window limit
	ErrorCodeAdmissionRejected

	// ErrorCodeBreakerOpen is for calls shed while the circuit breaker is open
	ErrorCodeBreakerOpen

	// ErrorCodeRateLimited is for upstream 429 responses, distinct from admission rejection
	ErrorCodeRateLimited

	// ErrorCodeUpstream is for upstream 5xx, malformed payloads, and transport failures
	ErrorCodeUpstream

	// ErrorCodeTimeout is for upstream calls exceeding their hard deadline
	ErrorCodeTimeout

	// ErrorCodeCacheUnavailable is for shared-tier cache failures; never surfaced to callers
	ErrorCodeCacheUnavailable

	// ErrorCodeInvalidArgument is for bad input parameters
	ErrorCodeInvalidArgument

	// ErrorCodeValidation is for validation failures (input data)
	ErrorCodeValidation

	// ErrorCodeJSON is for JSON parsing/validation errors
	ErrorCodeJSON

	// ErrorCodeNotFound is for missing resources
	ErrorCodeNotFound
)

// String returns a stable snake_case label for the code
func (c ErrorCode) String() string {
	switch c {
	case ErrorCodePanic:
		return "panic"
	case ErrorCodeAdmissionRejected:
		return "admission_rejected"
	case ErrorCodeBreakerOpen:
		return "breaker_open"
	case ErrorCodeRateLimited:
		return "rate_limited"
	case ErrorCodeUpstream:
		return "upstream"
	case ErrorCodeTimeout:
		return "timeout"
	case ErrorCodeCacheUnavailable:
		return "cache_unavailable"
	case ErrorCodeInvalidArgument:
		return "invalid_argument"
	case ErrorCodeValidation:
		return "validation"
	case ErrorCodeJSON:
		return "json"
	case ErrorCodeNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// HTTPStatusCode turns an ErrorCode into an http status code
func HTTPStatusCode(c ErrorCode) int {
	switch c {
	case ErrorCodeNotFound:
		return http.StatusNotFound
	case ErrorCodeInvalidArgument:
		return http.StatusUnprocessableEntity
	case ErrorCodeValidation, ErrorCodeJSON:
		return http.StatusBadRequest
	case ErrorCodeAdmissionRejected, ErrorCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrorCodeBreakerOpen:
		return http.StatusServiceUnavailable
	case ErrorCodeUpstream:
		return http.StatusBadGateway
	case ErrorCodeTimeout:
		return http.StatusGatewayTimeout
	case ErrorCodeCacheUnavailable, ErrorCodePanic, ErrorCodeUnknown:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ErrNotFound is a sentinel not found error for convenience
var ErrNotFound = New(ErrorCodeNotFound, "not found")

// Error is the structured error type with wrapping and metadata
// msg is human/developer facing; code is machine facing
// retryAfter is an optional backoff hint carried to the caller
// orig is the wrapped cause
type Error struct {
	orig       error
	msg        string
	code       ErrorCode
	field      string
	op         string
	retryAfter time.Duration
}

// Wire is the JSON-serializable form returned by the API
type Wire struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Field      string    `json:"field,omitempty"`
	RetryAfter int       `json:"retry_after_s,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.orig != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.orig)
	}
	return e.msg
}

// Unwrap returns the wrapped error, if any
func (e *Error) Unwrap() error { return e.orig }

// Code returns the error code
func (e *Error) Code() ErrorCode { return e.code }

// Field returns the offending field, if any
func (e *Error) Field() string { return e.field }

// Op returns the operation label, if set
func (e *Error) Op() string { return e.op }

// RetryAfter returns the backoff hint, zero when absent
func (e *Error) RetryAfter() time.Duration { return e.retryAfter }

// ToWire converts an *Error to a Wire payload
func (e *Error) ToWire() Wire {
	w := Wire{Code: e.code, Message: e.msg, Field: e.field}
	if e.retryAfter > 0 {
		// round up so a caller waiting the advertised seconds clears the window
		w.RetryAfter = int((e.retryAfter + time.Second - 1) / time.Second)
	}
	return w
}

// WireFrom converts any error into a Wire payload with best-effort mapping
// If err is nil, returns the zero-value Wire (no error)
func WireFrom(err error) Wire {
	if err == nil {
		return Wire{}
	}
	if e, ok := As(err); ok {
		return e.ToWire()
	}
	return Wire{Code: ErrorCodeUnknown, Message: err.Error()}
}

// Root returns the deepest wrapped cause
func Root(err error) error {
	for err != nil {
		u := stderrs.Unwrap(err)
		if u == nil {
			return err
		}
		err = u
	}
	return nil
}

// CodeOf extracts an ErrorCode from any error, defaulting to Unknown
func CodeOf(err error) ErrorCode {
	if e, ok := As(err); ok {
		return e.code
	}
	return ErrorCodeUnknown
}

// IsCode reports whether err has the given code
func IsCode(err error, code ErrorCode) bool { return CodeOf(err) == code }

// HTTPStatus returns the mapped HTTP status for any error
func HTTPStatus(err error) int { return HTTPStatusCode(CodeOf(err)) }

// RetryAfterOf extracts the backoff hint from any error; zero when absent
func RetryAfterOf(err error) time.Duration {
	if e, ok := As(err); ok {
		return e.retryAfter
	}
	return 0
}

// As unwraps and returns (*Error, true) if err is one of ours
func As(err error) (*Error, bool) {
	var e *Error
	if stderrs.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Mutators (copy-on-write)

// WithField attaches a field to an *Error (copy-on-write). If err isn't *Error, returns err unchanged
func WithField(err error, field string) error {
	if e, ok := As(err); ok {
		c := *e
		c.field = field
		return &c
	}
	return err
}

// WithOp attaches an operation label to an *Error (copy-on-write). If err isn't *Error, returns err unchanged
func WithOp(err error, op string) error {
	if e, ok := As(err); ok {
		c := *e
		c.op = op
		return &c
	}
	return err
}

// WithRetryAfter attaches a backoff hint to an *Error (copy-on-write)
// A foreign error is wrapped into an *Error with Unknown code so the hint survives
func WithRetryAfter(err error, d time.Duration) error {
	if e, ok := As(err); ok {
		c := *e
		c.retryAfter = d
		return &c
	}
	return &Error{code: ErrorCodeUnknown, msg: err.Error(), retryAfter: d, orig: err}
}

// Constructors

// New returns a new *Error with the given code and message
func New(code ErrorCode, msg string) error { return &Error{code: code, msg: msg} }

// Newf returns a new *Error with code and formatted message
func Newf(code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...)}
}

// Wrap returns a new *Error that wraps orig with code and message
func Wrap(orig error, code ErrorCode, msg string) error {
	return &Error{code: code, msg: msg, orig: orig}
}

// Wrapf returns a new *Error that wraps orig with code and formatted message
func Wrapf(orig error, code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...), orig: orig}
}

// Sugar

// NotFoundf returns a not found error
func NotFoundf(format string, a ...any) error { return Newf(ErrorCodeNotFound, format, a...) }

// InvalidArgf returns an invalid argument error
func InvalidArgf(format string, a ...any) error { return Newf(ErrorCodeInvalidArgument, format, a...) }

// JSONErrf returns a JSON error
func JSONErrf(format string, a ...any) error { return Newf(ErrorCodeJSON, format, a...) }

// PanicErrf returns a panic error
func PanicErrf(format string, a ...any) error { return Newf(ErrorCodePanic, format, a...) }

// AdmissionRejectedf returns an admission rejection error
func AdmissionRejectedf(format string, a ...any) error {
	return Newf(ErrorCodeAdmissionRejected, format, a...)
}

// BreakerOpenf returns a breaker open error
func BreakerOpenf(format string, a ...any) error { return Newf(ErrorCodeBreakerOpen, format, a...) }

// RateLimitedf returns an upstream rate limited error
func RateLimitedf(format string, a ...any) error { return Newf(ErrorCodeRateLimited, format, a...) }

// Upstreamf returns an upstream failure error
func Upstreamf(format string, a ...any) error { return Newf(ErrorCodeUpstream, format, a...) }

// Timeoutf returns an upstream timeout error
func Timeoutf(format string, a ...any) error { return Newf(ErrorCodeTimeout, format, a...) }

// CacheUnavailablef returns a shared-tier cache error
func CacheUnavailablef(format string, a ...any) error {
	return Newf(ErrorCodeCacheUnavailable, format, a...)
}

// HTTP bundles status + wire in one shot (nice for handlers)
func HTTP(err error) (int, Wire) {
	if err == nil {
		return http.StatusOK, Wire{}
	}
	return HTTPStatus(err), WireFrom(err)
}

// Retry semantics

// Retryable reports whether a retry of the failed call may succeed.
// Timeouts are retryable per the upstream contract (treated as UpstreamError)
func Retryable(err error) bool {
	switch CodeOf(err) {
	case ErrorCodeRateLimited, ErrorCodeUpstream, ErrorCodeTimeout, ErrorCodeUnknown:
		return true
	default:
		return false
	}
}
