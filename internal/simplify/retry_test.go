package simplify

import (
	"context"
	"errors"
	"testing"

	"easyread/internal/llm"
)

type flakyLLM struct {
	errs  []error
	out   string
	calls int
}

func (f *flakyLLM) Simplify(ctx context.Context, input llm.SimplifyInput) (string, error) {
	f.calls++
	if f.calls <= len(f.errs) {
		return "", f.errs[f.calls-1]
	}
	return f.out, nil
}

func TestRetryOnServerError(t *testing.T) {
	fake := &flakyLLM{errs: []error{&llm.UpstreamError{Status: 500}}, out: "done"}
	out, err := newRetryingClient(fake).Simplify(context.Background(), llm.SimplifyInput{Text: "x"})
	if err != nil {
		t.Fatalf("simplify: %v", err)
	}
	if out != "done" || fake.calls != 2 {
		t.Fatalf("expected recovery on second call, got out=%q calls=%d", out, fake.calls)
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	fake := &flakyLLM{errs: []error{&llm.UpstreamError{Status: 400}, &llm.UpstreamError{Status: 400}}}
	_, err := newRetryingClient(fake).Simplify(context.Background(), llm.SimplifyInput{Text: "x"})
	var upstream *llm.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if fake.calls != 1 {
		t.Fatalf("4xx must not retry, got %d calls", fake.calls)
	}
}

func TestAtMostOneRetry(t *testing.T) {
	fake := &flakyLLM{errs: []error{
		&llm.UpstreamError{Status: 503},
		&llm.UpstreamError{Status: 503},
		&llm.UpstreamError{Status: 503},
	}}
	_, err := newRetryingClient(fake).Simplify(context.Background(), llm.SimplifyInput{Text: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if fake.calls != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", fake.calls)
	}
}

func TestNoRetryOnMalformedResponse(t *testing.T) {
	fake := &flakyLLM{errs: []error{&llm.MalformedError{Reason: "no choices"}}}
	_, err := newRetryingClient(fake).Simplify(context.Background(), llm.SimplifyInput{Text: "x"})
	var malformed *llm.MalformedError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected malformed error, got %v", err)
	}
	if fake.calls != 1 {
		t.Fatalf("malformed responses must not retry, got %d calls", fake.calls)
	}
}
