package ocr

import (
	"context"
	"errors"
	"fmt"
)

// Engine recognizes text in an image. Implementations return the
// recognized text trimmed; a legible image with no text yields "".
type Engine interface {
	RecognizeImage(ctx context.Context, imageData []byte, mimeType string) (string, error)
}

// UpstreamError reports a non-success status from the OCR provider.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ocr upstream status %d", e.Status)
	}
	return fmt.Sprintf("ocr upstream status %d: %s", e.Status, e.Message)
}

// MalformedError reports a success status whose body carried no usable text.
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string {
	return "ocr malformed response: " + e.Reason
}

// ErrNotConfigured is returned by the placeholder engine.
var ErrNotConfigured = errors.New("OCR not configured")

// PlaceholderEngine is a stub implementation until provider wiring is added.
type PlaceholderEngine struct{}

// RecognizeImage returns ErrNotConfigured.
func (PlaceholderEngine) RecognizeImage(ctx context.Context, imageData []byte, mimeType string) (string, error) {
	_ = ctx
	_ = imageData
	_ = mimeType
	return "", ErrNotConfigured
}
