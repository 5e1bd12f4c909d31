package store

import (
	"database/sql"
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInvalidState      = errors.New("invalid state")
	ErrEmptyCart         = fmt.Errorf("%w: cart is empty", ErrNotFound)
)

// StockError reports the line that failed a stock check.
type StockError struct {
	ProductID int64
	Name      string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (product %d): requested %d, available %d",
		e.Name, e.ProductID, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error {
	return ErrInsufficientStock
}

func notFound(what string, id int64) error {
	return fmt.Errorf("%w: %s %d", ErrNotFound, what, id)
}

// mapNoRows turns sql.ErrNoRows into notFoundErr.
func mapNoRows(err, notFoundErr error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFoundErr
	}
	return err
}
