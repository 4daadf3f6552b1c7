// Package apperr defines the error taxonomy shared by all Lagu layers.
// Errors are sentinel values wrapped with context via fmt.Errorf("%w", ...);
// protocol adapters match them with errors.Is and translate to their own
// envelopes.
package apperr

import "errors"

var (
	// ErrNotFound signals an item, status, or type that was required but absent.
	ErrNotFound = errors.New("not found")

	// ErrInvalidRequest signals input the synchronizer rejects before any
	// write: unknown type, missing required content, bad title, impossible
	// date, self-referencing relation, or an unresolvable status name.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrConflict signals a state conflict, e.g. deleting a tag that is
	// still referenced by items.
	ErrConflict = errors.New("conflict")

	// ErrAlreadyExists signals a duplicate create, e.g. a second daily
	// item for the same date.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInternal signals an unexpected I/O failure. When it occurs during
	// index projection the authoritative file write has already succeeded
	// and Rebuild is the recovery path.
	ErrInternal = errors.New("internal error")
)
