package crates

import (
	"errors"
	"fmt"
)

// ErrorKind classifies registry errors so the HTTP boundary can translate
// them without inspecting message text.
type ErrorKind int

const (
	// KindStorage covers I/O faults and corrupt records; the client-facing
	// rendering is deliberately opaque.
	KindStorage ErrorKind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindUnauthenticated
)

// Error is the typed error every core component returns. Detail is safe to
// show to clients for all kinds except KindStorage.
type Error struct {
	Kind   ErrorKind
	Detail string
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Detail, e.cause)
	}
	return e.Detail
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Validationf reports a malformed request body or unparsable input.
func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Detail: fmt.Sprintf(format, args...)}
}

// Conflictf reports a request that is well-formed but contradicts current
// state, such as a duplicate version or a shadowed name.
func Conflictf(format string, args ...any) error {
	return &Error{Kind: KindConflict, Detail: fmt.Sprintf(format, args...)}
}

// NotFoundf reports an unknown crate, version or cache miss while offline.
func NotFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Detail: fmt.Sprintf(format, args...)}
}

// Unauthenticatedf reports a missing, invalid or unresolvable token.
func Unauthenticatedf(format string, args ...any) error {
	return &Error{Kind: KindUnauthenticated, Detail: fmt.Sprintf(format, args...)}
}

// Storagef wraps a lower-level fault. The detail stays operator-facing.
func Storagef(cause error, format string, args ...any) error {
	return &Error{Kind: KindStorage, Detail: fmt.Sprintf(format, args...), cause: cause}
}

// KindOf extracts the error class; anything untyped is treated as a storage
// fault so unexpected errors never leak detail to clients.
func KindOf(err error) ErrorKind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return KindStorage
}

// Detail returns the client-safe message for a typed error, or the opaque
// fallback for anything else.
func Detail(err error) string {
	var typed *Error
	if errors.As(err, &typed) && typed.Kind != KindStorage {
		return typed.Detail
	}
	return "something went wrong"
}
