package apperr

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable error code returned to API clients.
type Kind string

const (
	KindValidation        Kind = "VALIDATION_ERROR"
	KindNotFound          Kind = "NOT_FOUND"
	KindAccessDenied      Kind = "ACCESS_DENIED"
	KindUnauthorized      Kind = "UNAUTHORIZED"
	KindInsufficientStock Kind = "INSUFFICIENT_STOCK"
	KindEmptyCart         Kind = "EMPTY_CART"
	KindConflict          Kind = "CONFLICT"
	KindCheckoutBusy      Kind = "CHECKOUT_IN_PROGRESS"
	KindGateway           Kind = "GATEWAY_ERROR"
	KindPersistence       Kind = "PERSISTENCE_ERROR"
)

// Error is the single error type crossing service boundaries.
type Error struct {
	Kind    Kind
	Message string

	// stock detail, set for KindInsufficientStock
	ProductID string
	Available int
	Requested int

	// OrderID is set when the failure happened after an order was persisted.
	OrderID string

	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so callers can write errors.Is(err, apperr.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// Sentinels for errors.Is checks; a sentinel matches any error of the same kind.
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrAccessDenied      = &Error{Kind: KindAccessDenied}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized}
	ErrInsufficientStock = &Error{Kind: KindInsufficientStock}
	ErrEmptyCart         = &Error{Kind: KindEmptyCart}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrCheckoutBusy      = &Error{Kind: KindCheckoutBusy}
	ErrGateway           = &Error{Kind: KindGateway}
	ErrPersistence       = &Error{Kind: KindPersistence}
)

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func AccessDenied(format string, args ...any) *Error {
	return &Error{Kind: KindAccessDenied, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...any) *Error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func CheckoutBusy() *Error {
	return &Error{Kind: KindCheckoutBusy, Message: "another checkout for this user is in progress"}
}

func EmptyCart() *Error {
	return &Error{Kind: KindEmptyCart, Message: "cart is empty"}
}

// InsufficientStock names the product and reports what is left.
func InsufficientStock(productID, name string, available, requested int) *Error {
	label := productID
	if name != "" {
		label = name
	}
	return &Error{
		Kind:      KindInsufficientStock,
		Message:   fmt.Sprintf("insufficient stock for %s (available: %d, requested: %d)", label, available, requested),
		ProductID: productID,
		Available: available,
		Requested: requested,
	}
}

func Gateway(err error, msg string) *Error {
	return &Error{Kind: KindGateway, Message: msg, Err: err}
}

// Persistence wraps a storage failure. A nil err yields nil.
func Persistence(err error, msg string) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: KindPersistence, Message: msg, Err: err}
}

// KindOf reports the Kind of err, defaulting to KindPersistence for foreign errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindPersistence
}

// As is a shortcut for errors.As into *Error.
func As(err error) (*Error, bool) {
	var ae *Error
	ok := errors.As(err, &ae)
	return ae, ok
}
