// Package apperr defines the error taxonomy shared by every layer of the
// coaching backend.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
)

// Kind classifies a failure for callers. Messages are for humans, kinds are
// for code.
type Kind string

const (
	KindUnauthenticated   Kind = "unauthenticated"
	KindForbidden         Kind = "forbidden"
	KindNotFound          Kind = "not_found"
	KindValidation        Kind = "validation_error"
	KindInvalidTransition Kind = "invalid_state_transition"
	KindInternal          Kind = "internal_error"
)

// Sentinels for errors.Is checks. Matching is by kind only.
var (
	ErrUnauthenticated   = &Error{Kind: KindUnauthenticated, Message: "unauthenticated"}
	ErrForbidden         = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "not found"}
	ErrValidation        = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition, Message: "invalid state transition"}
	ErrInternal          = &Error{Kind: KindInternal, Message: "internal error"}
)

// Error is a classified failure with an optional underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind that keeps cause in the chain.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Validation is shorthand for a KindValidation error.
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// NotFound is shorthand for a KindNotFound error naming the missing resource.
func NotFound(resource string) *Error {
	return New(KindNotFound, resource+" not found")
}

// Internal wraps an unexpected backend failure. The message shown to callers
// stays generic; the cause is only reachable through Unwrap.
func Internal(cause error) *Error {
	return Wrap(KindInternal, "internal error", cause)
}

// KindOf returns the kind of err. Unclassified errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps a kind to its HTTP status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindInvalidTransition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// GRPCCode maps a kind to its gRPC status code.
func (k Kind) GRPCCode() codes.Code {
	switch k {
	case KindUnauthenticated:
		return codes.Unauthenticated
	case KindForbidden:
		return codes.PermissionDenied
	case KindNotFound:
		return codes.NotFound
	case KindValidation:
		return codes.InvalidArgument
	case KindInvalidTransition:
		return codes.FailedPrecondition
	default:
		return codes.Internal
	}
}
