package models

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrIllegalStatusTransition = errors.New("illegal status transition")
	ErrCannotFulfillOrder      = errors.New("cannot fulfill order")
	ErrOrderNotEditable        = errors.New("order is not editable")
	ErrOrderNotDeletable       = errors.New("completed orders cannot be deleted")
)

// ValidationError rejects a write before anything is persisted.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

type InsufficientStockError struct {
	ItemID    int64
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %d: have %d, need %d", e.ItemID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

type TransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal status transition %s -> %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrIllegalStatusTransition
}

func IsInsufficientStock(err error) bool {
	return errors.Is(err, ErrInsufficientStock)
}
