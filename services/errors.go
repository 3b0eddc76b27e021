// Package services holds the marketplace's business rules: the catalog, the
// buyer cart and the order lifecycle engine. Every function that writes takes
// the caller's unit of work as a *gorm.DB and never commits it.
package services

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindAccessDenied
	KindConflict
	KindInventory
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindNotFound:
		return "not_found"
	case KindAccessDenied:
		return "access_denied"
	case KindConflict:
		return "conflict"
	case KindInventory:
		return "inventory_error"
	case KindUpstream:
		return "upstream_error"
	default:
		return "internal_error"
	}
}

func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindInventory:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindAccessDenied:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error is returned by every exported service function. Code is stable and
// machine readable; Message is safe to show to the client. Err keeps the
// underlying cause for logs.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

const (
	CodeEmptyCart    = "empty_cart"
	CodeInvalidState = "invalid_state"
	CodeHasOrders    = "animal_has_orders"

	CodePaymentInProgress = "payment_in_progress"
)

func newError(kind Kind, code, message string, err error) *Error {
	if code == "" {
		code = kind.String()
	}
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

func Validation(code, message string) *Error {
	return newError(KindValidation, code, message, nil)
}

func NotFound(message string) *Error {
	return newError(KindNotFound, "", message, nil)
}

func AccessDenied(message string) *Error {
	return newError(KindAccessDenied, "", message, nil)
}

func Conflict(code, message string) *Error {
	return newError(KindConflict, code, message, nil)
}

func Inventory(message string) *Error {
	return newError(KindInventory, "", message, nil)
}

func Upstream(message string, err error) *Error {
	return newError(KindUpstream, "", message, err)
}

func Internal(message string, err error) *Error {
	return newError(KindInternal, "", message, err)
}

// KindOf reports the kind of err; anything that is not an *Error is internal.
func KindOf(err error) Kind {
	var serviceErr *Error
	if errors.As(err, &serviceErr) {
		return serviceErr.Kind
	}
	return KindInternal
}

// AsError returns err as an *Error, wrapping foreign errors as internal.
func AsError(err error) *Error {
	var serviceErr *Error
	if errors.As(err, &serviceErr) {
		return serviceErr
	}
	return Internal("Something went wrong", err)
}
