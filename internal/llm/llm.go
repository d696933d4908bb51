package llm

import (
	"context"
	"errors"
	"fmt"
)

// Client abstracts LLM providers for the Easy Read rewrite.
type Client interface {
	Simplify(ctx context.Context, input SimplifyInput) (string, error)
}

// SimplifyInput captures the inputs for one rewrite request.
type SimplifyInput struct {
	// Text is the original document text to rewrite.
	Text string
	// KeepTerms lists words that must survive the rewrite verbatim.
	KeepTerms []string
}

// UpstreamError reports a non-success status from the provider API.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("llm upstream status %d", e.Status)
	}
	return fmt.Sprintf("llm upstream status %d: %s", e.Status, e.Message)
}

// MalformedError reports a success status whose body carried no usable text.
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string {
	return "llm malformed response: " + e.Reason
}

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("LLM not configured")

// PlaceholderClient is a stub implementation until provider wiring is added.
type PlaceholderClient struct{}

// Simplify returns ErrNotConfigured.
func (PlaceholderClient) Simplify(ctx context.Context, input SimplifyInput) (string, error) {
	_ = ctx
	_ = input
	return "", ErrNotConfigured
}
