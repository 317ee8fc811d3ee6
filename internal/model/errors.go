package model

import (
	"errors"
	"fmt"
)

// ErrInvalidFormat is returned when a raw value does not pass the format check of its field.
var ErrInvalidFormat = errors.New("invalid format")

// ErrNotFound is returned when an operation targets a contact or a phone number that does not
// exist where existence is required.
var ErrNotFound = errors.New("not found")

// FieldError describes a rejected field value. It matches ErrInvalidFormat with errors.Is.
type FieldError struct {
	Kind   FieldKind
	Value  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s '%s': %s", e.Kind, e.Value, e.Reason)
}

func (e *FieldError) Is(target error) bool {
	return target == ErrInvalidFormat
}

// contactNotFound builds the error for a missing contact name.
func contactNotFound(name string) error {
	return fmt.Errorf("contact '%s' %w in the address book", name, ErrNotFound)
}
