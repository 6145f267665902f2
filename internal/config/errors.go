package config

import "fmt"

// FieldError carries the field path and the reason it failed validation, so
// the CLI can point the operator at the exact key.
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func newFieldError(field, reason string) error {
	return FieldError{Field: field, Reason: reason}
}
