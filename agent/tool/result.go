package tool

import (
	"context"
	"errors"
	"fmt"

	storex "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/store"
)

type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindInsufficientStock Kind = "insufficient_stock"
	KindAlreadyExists     Kind = "already_exists"
	KindStoreError        Kind = "store_error"
	KindInvalidArguments  Kind = "invalid_arguments"
	KindNotAllowed        Kind = "not_allowed"
	KindInvalidState      Kind = "invalid_state"
	KindTimeout           Kind = "timeout"
)

// EmptyCartMessage is the not_found message place_order uses for an empty cart.
const EmptyCartMessage = "cart is empty"

type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Result is either a Payload or an Err, never both.
type Result struct {
	Tool    Name   `json:"tool"`
	Payload any    `json:"payload,omitempty"`
	Err     *Error `json:"error,omitempty"`
}

func Ok(tool Name, payload any) Result {
	return Result{Tool: tool, Payload: payload}
}

func Fail(tool Name, kind Kind, msg string) Result {
	return Result{Tool: tool, Err: &Error{Kind: kind, Message: msg}}
}

func (r Result) OK() bool {
	return r.Err == nil
}

// Kind returns the error kind, or "" on success.
func (r Result) Kind() Kind {
	if r.Err == nil {
		return ""
	}
	return r.Err.Kind
}

func classifyError(err error) *Error {
	var stock *storex.StockError
	switch {
	case errors.As(err, &stock):
		if stock.Available <= 0 {
			return &Error{Kind: KindInsufficientStock, Message: fmt.Sprintf("%s is out of stock", stock.Name)}
		}
		return &Error{Kind: KindInsufficientStock, Message: fmt.Sprintf("only %d left of %s", stock.Available, stock.Name)}
	case errors.Is(err, storex.ErrEmptyCart):
		return &Error{Kind: KindNotFound, Message: EmptyCartMessage}
	case errors.Is(err, storex.ErrNotFound):
		return &Error{Kind: KindNotFound, Message: err.Error()}
	case errors.Is(err, storex.ErrAlreadyExists):
		return &Error{Kind: KindAlreadyExists, Message: err.Error()}
	case errors.Is(err, storex.ErrInvalidState):
		return &Error{Kind: KindInvalidState, Message: err.Error()}
	case errors.Is(err, ErrInvalidArguments):
		return &Error{Kind: KindInvalidArguments, Message: err.Error()}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &Error{Kind: KindTimeout, Message: "the store did not answer in time"}
	default:
		return &Error{Kind: KindStoreError, Message: err.Error()}
	}
}
