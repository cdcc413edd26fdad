package service

import (
	"errors"
	"fmt"
)

// ErrInvalidInput marks caller mistakes (unknown property, bad value).
var ErrInvalidInput = errors.New("service: invalid input")

// ValidationError reports a rejected field value. It unwraps to
// ErrInvalidInput.
type ValidationError struct {
	Property string
	Message  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("service: %s: %s", e.Property, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }
