package api

import (
	"errors"
	"fmt"
)

var (
	// ErrNotSignedIn is returned before any request is issued when the
	// session is missing or has no token.
	ErrNotSignedIn = errors.New("not signed in")

	// ErrNoSimplifiedText is returned when the simplify endpoint
	// answered successfully but carried no usable text.
	ErrNoSimplifiedText = errors.New("simplify response carried no text")
)

// APIError is a non-2xx response from the service. Message is the
// server's own human-readable message, surfaced verbatim.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.Status)
	}
	return fmt.Sprintf("server returned status %d: %s", e.Status, e.Message)
}
