package simplify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"easyread/internal/llm"
	"easyread/internal/shared/metrics"
)

// MaxInputChars bounds the text accepted for one rewrite request.
const MaxInputChars = 60000

var (
	// ErrEmptyText is returned when the request carries no text to rewrite.
	ErrEmptyText = errors.New("text is required")

	// ErrTextTooLong is returned when the input exceeds MaxInputChars.
	ErrTextTooLong = fmt.Errorf("text exceeds %d characters", MaxInputChars)
)

// Service runs Easy Read rewrites through the configured LLM provider.
// It never mutates stored state; callers track whether a result was
// persisted.
type Service struct {
	LLM llm.Client
}

// NewService constructs a Service.
func NewService(client llm.Client) *Service {
	return &Service{LLM: client}
}

// Simplify validates the input and delegates to the provider, retrying
// once on transient failures.
func (s *Service) Simplify(ctx context.Context, text string, keepTerms []string) (string, error) {
	if s == nil || s.LLM == nil {
		return "", errors.New("simplify service not configured")
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	if len(text) > MaxInputChars {
		return "", ErrTextTooLong
	}

	metrics.IncSimplifyStarted()
	start := time.Now()

	out, err := newRetryingClient(s.LLM).Simplify(ctx, llm.SimplifyInput{
		Text:      text,
		KeepTerms: keepTerms,
	})
	metrics.ObserveSimplifyDurationMs(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.IncSimplifyFailed()
		return "", err
	}

	if strings.TrimSpace(out) == "" {
		metrics.IncSimplifyFailed()
		return "", &llm.MalformedError{Reason: "provider returned empty rewrite"}
	}
	metrics.IncSimplifyCompleted()
	return out, nil
}
