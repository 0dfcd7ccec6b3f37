// Package apierror defines repod's closed error taxonomy (spec §7) and its
// mapping onto HTTP status codes at the edges.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one of the closed set of error kinds a repod operation can fail
// with.
type Kind string

const (
	Unauthorized      Kind = "Unauthorized"
	NotFound          Kind = "NotFound"
	Conflict          Kind = "Conflict"
	MalformedPackage  Kind = "MalformedPackage"
	PublishStale      Kind = "PublishStale"
	SignatureInvalid  Kind = "SignatureInvalid"
	StorageUnavailable Kind = "StorageUnavailable"
	CatalogConflict   Kind = "CatalogConflict"
	Internal          Kind = "Internal"
)

// Error is the error type every repod operation that can fail in a
// user-visible way returns.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Kind, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error with the given kind, machine-readable code, and
// human message.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap builds an Error that carries an underlying cause, for kinds
// (StorageUnavailable, CatalogConflict, Internal) that originate from a
// lower-level failure.
func Wrap(kind Kind, code, message string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Cause: cause}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Retryable reports whether the propagation policy of spec §7 calls for
// this error to be retried internally rather than surfaced immediately.
func (e *Error) Retryable() bool {
	return e.Kind == CatalogConflict || e.Kind == StorageUnavailable
}

// HTTPStatus maps a Kind to the status code repod's HTTP edges respond
// with.
func (k Kind) HTTPStatus() int {
	switch k {
	case Unauthorized:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case MalformedPackage:
		return http.StatusBadRequest
	case PublishStale:
		return http.StatusConflict
	case SignatureInvalid:
		return http.StatusBadRequest
	case StorageUnavailable:
		return http.StatusBadGateway
	case CatalogConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
