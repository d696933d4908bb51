package simplify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"easyread/internal/llm"
)

type fakeLLM struct {
	out   string
	err   error
	calls int
}

func (f *fakeLLM) Simplify(ctx context.Context, input llm.SimplifyInput) (string, error) {
	f.calls++
	return f.out, f.err
}

func newTestRouter(client llm.Client) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1")
	NewHandler(NewService(client)).RegisterRoutes(api)
	return router
}

func postSimplify(t *testing.T, router *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/simplify", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestSimplifyReturnsRewrite(t *testing.T) {
	router := newTestRouter(&fakeLLM{out: "The huge building was opened."})

	resp := postSimplify(t, router, `{"text":"The colossal edifice was inaugurated."}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", resp.Code, resp.Body.String())
	}

	var body simplifyResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.SimplifiedText != "The huge building was opened." {
		t.Fatalf("unexpected text %q", body.SimplifiedText)
	}
}

func TestSimplifyRejectsEmptyAndOversizedText(t *testing.T) {
	fake := &fakeLLM{out: "ok"}
	router := newTestRouter(fake)

	if resp := postSimplify(t, router, `{"text":"   "}`); resp.Code != http.StatusBadRequest {
		t.Fatalf("empty text: expected 400, got %d", resp.Code)
	}

	huge, _ := json.Marshal(map[string]string{"text": strings.Repeat("a", MaxInputChars+1)})
	if resp := postSimplify(t, router, string(huge)); resp.Code != http.StatusBadRequest {
		t.Fatalf("oversized text: expected 400, got %d", resp.Code)
	}

	if fake.calls != 0 {
		t.Fatalf("provider must not be called for invalid input, got %d calls", fake.calls)
	}
}

func TestSimplifyMapsProviderFailures(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"upstream status", &llm.UpstreamError{Status: 503, Message: "overloaded"}, http.StatusBadGateway, "upstream_error"},
		{"malformed payload", &llm.MalformedError{Reason: "no choices"}, http.StatusBadGateway, "bad_upstream_response"},
		{"unreachable", errors.New("dial tcp: connection refused"), http.StatusServiceUnavailable, "upstream_unreachable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(&fakeLLM{err: tc.err})
			resp := postSimplify(t, router, `{"text":"hello"}`)
			if resp.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d body=%s", tc.wantStatus, resp.Code, resp.Body.String())
			}
			var body struct {
				Error struct {
					Code    string `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
			}
			if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error.Code != tc.wantCode {
				t.Fatalf("expected code %s, got %s", tc.wantCode, body.Error.Code)
			}
			if body.Error.Message == "" {
				t.Fatal("error message must not be empty")
			}
		})
	}
}

func TestSimplifyUpstreamErrorCarriesDetail(t *testing.T) {
	router := newTestRouter(&fakeLLM{err: &llm.UpstreamError{Status: 429, Message: "rate limit exceeded"}})
	resp := postSimplify(t, router, `{"text":"hello"}`)
	if !strings.Contains(resp.Body.String(), "429") || !strings.Contains(resp.Body.String(), "rate limit exceeded") {
		t.Fatalf("upstream status and detail missing from body: %s", resp.Body.String())
	}
}
