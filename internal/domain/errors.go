package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("invalid input")
	ErrInconsistentInput = errors.New("inconsistent input")
	ErrInsufficientData  = errors.New("insufficient data")
	ErrNotFound          = errors.New("not found")
)

// ValidationError describe un campo primitivo inválido (monto negativo, NaN...).
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is permite errors.Is(err, ErrValidation).
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
