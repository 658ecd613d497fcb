package service

import (
	"errors"
	"strconv"

	"github.com/linemk/elite-cart/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrForbidden          = errors.New("access to the resource is forbidden")
	ErrEmptyOrder         = errors.New("no items in order")
)

// InvalidOrderItemError names the offending position of a malformed order
// request.
type InvalidOrderItemError struct {
	Index int
}

func (e *InvalidOrderItemError) Error() string {
	return "invalid item data at position " + strconv.Itoa(e.Index)
}

// ProductNotFoundError names the product an order referenced that does not
// exist. Unwraps to storage.ErrProductNotFound.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return "product " + strconv.FormatInt(e.ProductID, 10) + " not found"
}

func (e *ProductNotFoundError) Unwrap() error { return storage.ErrProductNotFound }

// InsufficientStockError names the product whose stock cannot cover the
// requested quantity. Unwraps to storage.ErrInsufficientStock.
type InsufficientStockError struct {
	ProductID int64
}

func (e *InsufficientStockError) Error() string {
	return "insufficient stock for product " + strconv.FormatInt(e.ProductID, 10)
}

func (e *InsufficientStockError) Unwrap() error { return storage.ErrInsufficientStock }
