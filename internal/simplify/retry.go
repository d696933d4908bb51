package simplify

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"easyread/internal/llm"
	"easyread/internal/shared/telemetry"
)

const retryBaseDelay = 300 * time.Millisecond

// retryingClient retries one transient provider failure before giving up.
// Non-transient failures (4xx, malformed payloads) surface immediately.
type retryingClient struct {
	base llm.Client
}

func newRetryingClient(base llm.Client) llm.Client {
	if base == nil {
		return nil
	}
	return retryingClient{base: base}
}

func (r retryingClient) Simplify(ctx context.Context, input llm.SimplifyInput) (string, error) {
	out, err := r.base.Simplify(ctx, input)
	if err == nil || !shouldRetry(err) {
		return out, err
	}

	telemetry.Info("simplify.retry", map[string]any{
		"attempt": 1,
		"error":   err.Error(),
	})
	select {
	case <-time.After(retryBaseDelay):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	return r.base.Simplify(ctx, input)
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var upstream *llm.UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Status >= 500
	}
	var malformed *llm.MalformedError
	if errors.As(err, &malformed) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "client.timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}

	return false
}
