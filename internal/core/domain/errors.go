package domain

import "errors"

// Storage-level errors returned by repository implementations.
var (
	// ErrDuplicate indicates a unique constraint violation.
	ErrDuplicate = errors.New("duplicate record")

	// ErrReferenceMissing indicates a foreign key pointed at a row that does not exist.
	ErrReferenceMissing = errors.New("referenced record missing")

	// ErrValueTooLong indicates a value longer than its column allows.
	ErrValueTooLong = errors.New("value too long")
)
