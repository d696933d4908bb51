package pdfrender

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// convertPath is the Gotenberg Chromium HTML conversion route.
const convertPath = "/forms/chromium/convert/html"

// UpstreamError reports a non-success status from the converter.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("pdf converter status %d", e.Status)
	}
	return fmt.Sprintf("pdf converter status %d: %s", e.Status, e.Message)
}

// MalformedError reports a success status whose body was not a PDF.
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string {
	return "pdf converter malformed response: " + e.Reason
}

// Client converts HTML to PDF through an opaque Gotenberg-compatible
// converter. The HTML rides as a multipart file named index.html.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a converter client.
func NewClient(baseURL string) *Client {
	timeout := 60 * time.Second
	if raw := strings.TrimSpace(os.Getenv("PDF_RENDER_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ConvertHTML renders the HTML document and returns the PDF bytes.
func (c *Client) ConvertHTML(ctx context.Context, html string) ([]byte, error) {
	if strings.TrimSpace(html) == "" {
		return nil, fmt.Errorf("html is required")
	}

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	fw, err := mw.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}
	if _, err := io.WriteString(fw, html); err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+convertPath, &form)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pdf converter request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("pdf converter response read: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := strings.TrimSpace(string(body))
		if len(detail) > 200 {
			detail = detail[:200]
		}
		return nil, &UpstreamError{Status: resp.StatusCode, Message: detail}
	}

	if len(body) == 0 {
		return nil, &MalformedError{Reason: "empty body"}
	}
	if !bytes.HasPrefix(body, []byte("%PDF")) {
		return nil, &MalformedError{Reason: "body is not a PDF"}
	}
	return body, nil
}
