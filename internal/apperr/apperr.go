// Package apperr defines the closed set of application error types used
// across the submission backend and their RFC 7807 problem-details
// rendering. Every error that crosses a service boundary is one of these.
package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies which error family a Error belongs to.
type Kind string

const (
	KindUser             Kind = "user"
	KindUnauthorizedUser Kind = "unauthorized_user"
	KindForbidden        Kind = "forbidden"
	KindNotFound         Kind = "not_found"
	KindUpstreamClient   Kind = "upstream_client_error"
	KindUpstreamServer   Kind = "upstream_server_error"
	KindUpstreamTimeout  Kind = "upstream_timeout"
	KindConfig           Kind = "config_error"
	KindSystem           Kind = "system_error"
)

// statusByKind mirrors original_source's AppException hierarchy: user-facing
// errors map to 4xx, upstream server failures and unhandled system errors
// map to 502/500.
var statusByKind = map[Kind]int{
	KindUser:             400,
	KindUnauthorizedUser: 401,
	KindForbidden:        403,
	KindNotFound:         404,
	KindUpstreamClient:   409,
	KindUpstreamServer:   502,
	KindUpstreamTimeout:  504,
	KindConfig:           500,
	KindSystem:           500,
}

// Error is the application's single error type. Handlers and the
// orchestrator switch on Kind, never on string matching.
type Error struct {
	Kind    Kind
	Message string
	Service string // upstream service name, set for Upstream* kinds
	// OriginalStatus carries the upstream HTTP status for
	// KindUpstreamClient, per spec.md §7 ("carries the original code").
	OriginalStatus int
	// FieldErrors carries per-field/per-position validation failures,
	// rendered as Problem.Errors (spec.md §6: "errors=[{field,message}]").
	FieldErrors []FieldError
	Err         error
}

func (e *Error) Error() string {
	if e.Service != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Service, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status this error should render as.
func (e *Error) StatusCode() int {
	if e.Kind == KindUpstreamClient && e.OriginalStatus >= 400 && e.OriginalStatus < 500 {
		return e.OriginalStatus
	}
	if s, ok := statusByKind[e.Kind]; ok {
		return s
	}
	return 500
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NewUser(format string, args ...interface{}) *Error {
	return New(KindUser, fmt.Sprintf(format, args...))
}

// NewValidation builds a UserError carrying per-field validation failures,
// the way the validation middleware rejects a malformed submissions or
// objects payload.
func NewValidation(message string, fields []FieldError) *Error {
	return &Error{Kind: KindUser, Message: message, FieldErrors: fields}
}

func NewNotFound(format string, args ...interface{}) *Error {
	return New(KindNotFound, fmt.Sprintf(format, args...))
}

func NewUnauthorized(message string) *Error {
	return New(KindUnauthorizedUser, message)
}

func NewForbidden(message string) *Error {
	return New(KindForbidden, message)
}

// UpstreamError builds an Upstream{Client,Server}Error from an observed
// HTTP status code, the way original_source's ServiceHandler.make_exception
// splits on status < 500.
func UpstreamError(service string, status int, body string) *Error {
	kind := KindUpstreamServer
	if status > 0 && status < 500 {
		kind = KindUpstreamClient
	}
	return &Error{Kind: kind, Service: service, Message: body, OriginalStatus: status}
}

func UpstreamTimeout(service string, err error) *Error {
	return &Error{Kind: KindUpstreamTimeout, Service: service, Message: "request timed out", Err: err}
}

// Is reports whether err (possibly wrapped) carries the given Kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	if !errors.As(err, &ae) {
		return false
	}
	return ae.Kind == kind
}

// Retryable reports whether the orchestrator/svcclient should retry an
// operation that failed with this error.
func (e *Error) Retryable() bool {
	return e.Kind == KindUpstreamServer || e.Kind == KindUpstreamTimeout
}
