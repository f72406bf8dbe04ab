package domain

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind string

const (
	KindInvalidInput      ErrorKind = "invalid_input"
	KindNotFound          ErrorKind = "not_found"
	KindInsufficientStock ErrorKind = "insufficient_stock"
	KindEmptyOrder        ErrorKind = "empty_order"
	KindAlreadyCanceled   ErrorKind = "already_canceled"
	KindNotCancelable     ErrorKind = "not_cancelable"
	KindLockTimeout       ErrorKind = "lock_timeout"
	KindUnexpected        ErrorKind = "unexpected"
)

// HTTPStatus maps a kind onto the status code a transport should answer with.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindInvalidInput, KindInsufficientStock, KindEmptyOrder, KindAlreadyCanceled, KindNotCancelable:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindLockTimeout:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Retryable is true when repeating the whole operation may succeed.
func (k ErrorKind) Retryable() bool {
	return k == KindLockTimeout
}

// Error is the tagged error every checkout operation fails with.
type Error struct {
	Kind    ErrorKind
	Message string

	ProductID int64
	Available int64
	Requested int64
	Status    OrderStatus

	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on kind, so errors.Is(err, &Error{Kind: KindNotFound}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of err. Anything that is not a *Error is unexpected.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnexpected
}

func InvalidInput(msg string) *Error {
	return &Error{Kind: KindInvalidInput, Message: msg}
}

func MissingField(field string) *Error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf("%s is required", field)}
}

func InvalidQuantity(productID, quantity int64) *Error {
	return &Error{
		Kind:      KindInvalidInput,
		Message:   fmt.Sprintf("invalid quantity %d for product %d", quantity, productID),
		ProductID: productID,
		Requested: quantity,
	}
}

func ProductNotFound(productID int64) *Error {
	return &Error{
		Kind:      KindNotFound,
		Message:   fmt.Sprintf("product with ID %d not found", productID),
		ProductID: productID,
	}
}

func OrderNotFound(orderID int64) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("order %d not found", orderID)}
}

func InsufficientStock(productID, available, requested int64) *Error {
	return &Error{
		Kind:      KindInsufficientStock,
		Message:   fmt.Sprintf("insufficient stock for product %d. Available: %d, Requested: %d", productID, available, requested),
		ProductID: productID,
		Available: available,
		Requested: requested,
	}
}

func EmptyOrder() *Error {
	return &Error{Kind: KindEmptyOrder, Message: "order must have at least one item"}
}

func AlreadyCanceled(orderID int64) *Error {
	return &Error{Kind: KindAlreadyCanceled, Message: fmt.Sprintf("order %d already canceled", orderID), Status: OrderCanceled}
}

func NotCancelable(status OrderStatus) *Error {
	return &Error{Kind: KindNotCancelable, Message: fmt.Sprintf("cannot cancel order with status: %s", status), Status: status}
}

func LockTimeout(cause error) *Error {
	return &Error{Kind: KindLockTimeout, Message: "timed out waiting for product lock", Err: cause}
}

func Unexpected(cause error) *Error {
	return &Error{Kind: KindUnexpected, Message: "unexpected persistence failure", Err: cause}
}
