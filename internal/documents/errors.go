package documents

import "errors"

var (
	// ErrNotFound is returned when a document does not exist for the
	// requesting owner. Other users' documents surface as not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when a document fails validation.
	ErrInvalidInput = errors.New("invalid input")
)
