package kds

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPayload rejects a create request missing a required field.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrInvalidStatus rejects an item action or order status outside the allowed set.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrItemNotFound is returned when an item update touched no rows. It does not
	// prove the item is absent.
	ErrItemNotFound = errors.New("item does not exist or was not updated")
	// ErrOrderNotFound is returned when no order matched the internal or POS id.
	ErrOrderNotFound = errors.New("order not found")
)

// InfrastructureError wraps a database or transport failure.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() error {
	return e.Err
}

func infra(op string, err error) error {
	return &InfrastructureError{Op: op, Err: err}
}

// IsClientError reports whether err is a domain rejection rather than an infrastructure failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPayload) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrItemNotFound) ||
		errors.Is(err, ErrOrderNotFound)
}
