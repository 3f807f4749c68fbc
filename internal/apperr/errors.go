// Package apperr defines the error taxonomy shared across packages.
package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrDuplicateDirective is returned when a processor name is registered twice.
	ErrDuplicateDirective = errors.New("duplicate directive")
	// ErrUnknownDirective is returned for a directive name with no processor.
	ErrUnknownDirective = errors.New("unknown directive")
	// ErrInvalidDirectiveValue marks a value rejected at validate time.
	ErrInvalidDirectiveValue = errors.New("invalid directive value")
	// ErrUnsafePattern marks a recursive or parent-traversal pattern.
	ErrUnsafePattern = errors.New("unsafe pattern")

	// ErrBackend wraps generation backend failures. Fatal for the invocation.
	ErrBackend = errors.New("generation backend")
	// ErrStore wraps persistence failures. Fatal for the invocation.
	ErrStore = errors.New("store")
)
