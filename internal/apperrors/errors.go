// Package apperrors defines the typed error kinds the services return and
// the HTTP status each kind maps to at the edge.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a machine-readable error category.
type Kind string

const (
	KindValidation      Kind = "validation_error"
	KindPriceMismatch   Kind = "price_mismatch"
	KindDuplicateUser   Kind = "duplicate_user"
	KindNotFound        Kind = "not_found"
	KindRemoteProvision Kind = "remote_provision_error"
	KindRemoteServer    Kind = "remote_server_error"
	KindRemoteTemplate  Kind = "remote_template_error"
	KindPaymentGateway  Kind = "payment_gateway_error"
	KindPersist         Kind = "persist_error"
	KindUpstreamTimeout Kind = "upstream_timeout"
	KindMaintenance     Kind = "maintenance"
	KindInternal        Kind = "internal_error"
)

// Error is a categorized application error. Detail carries structured data
// for the client (e.g. the expected amount on a price mismatch) or the
// upstream payload on remote failures.
type Error struct {
	Kind    Kind
	Message string
	Detail  any
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.err }

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind wrapping a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, err: err}
}

// WithDetail attaches structured detail and returns the error.
func (e *Error) WithDetail(detail any) *Error {
	e.Detail = detail
	return e
}

// PriceMismatch builds a rejection carrying the server-side computed amount
// so the client can correct itself.
func PriceMismatch(expected int64) *Error {
	return &Error{
		Kind:    KindPriceMismatch,
		Message: "submitted amount does not match the calculated price",
		Detail:  map[string]int64{"expected": expected},
	}
}

// KindOf returns the kind of err, or KindInternal for uncategorized errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error to the response status the handlers use.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindPriceMismatch:
		return http.StatusBadRequest
	case KindDuplicateUser:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindMaintenance:
		return http.StatusServiceUnavailable
	case KindUpstreamTimeout:
		return http.StatusGatewayTimeout
	case KindRemoteProvision, KindRemoteServer, KindRemoteTemplate, KindPaymentGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
