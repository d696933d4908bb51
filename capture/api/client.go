package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Client talks to the EasyRead companion service. The zero HTTPClient
// defaults to a 60 second timeout.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient constructs a Client for the given base URL, which should
// include the API prefix (e.g. https://host/api/v1).
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Document is a stored document as the service returns it.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	SourceTag string    `json:"sourceTag"`
	FileName  string    `json:"fileName,omitempty"`
	FileURL   string    `json:"fileUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateDocumentInput carries the fields for a new document.
type CreateDocumentInput struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Type      string `json:"type"`
	SourceTag string `json:"sourceTag"`
	FileName  string `json:"fileName,omitempty"`
	FileURL   string `json:"fileUrl,omitempty"`
}

// PDFExtraction is the service's answer to a PDF extraction request.
type PDFExtraction struct {
	Text           string `json:"text"`
	SuggestedTitle string `json:"suggestedTitle"`
	Pages          int    `json:"pages"`
}

type authResponse struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"user"`
}

// Login signs in and returns a fresh session.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var resp authResponse
	err := c.postJSON(ctx, nil, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return sessionFromAuth(resp)
}

// Register creates an account and returns a fresh session.
func (c *Client) Register(ctx context.Context, name, email, password string) (*Session, error) {
	var resp authResponse
	err := c.postJSON(ctx, nil, "/auth/register", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return sessionFromAuth(resp)
}

func sessionFromAuth(resp authResponse) (*Session, error) {
	if strings.TrimSpace(resp.Token) == "" {
		return nil, &APIError{Status: http.StatusOK, Message: "server returned no token"}
	}
	return &Session{
		Token:  resp.Token,
		UserID: resp.User.ID,
		Name:   resp.User.Name,
		Email:  resp.User.Email,
	}, nil
}

// CreateDocument persists a document for the signed-in user.
func (c *Client) CreateDocument(ctx context.Context, session *Session, in CreateDocumentInput) (Document, error) {
	if !session.Valid() {
		return Document{}, ErrNotSignedIn
	}
	var doc Document
	if err := c.postJSON(ctx, session, "/documents", in, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// ListDocuments returns the user's documents, newest first.
func (c *Client) ListDocuments(ctx context.Context, session *Session) ([]Document, error) {
	if !session.Valid() {
		return nil, ErrNotSignedIn
	}
	req, err := c.newRequest(ctx, session, http.MethodGet, "/documents", nil, "")
	if err != nil {
		return nil, err
	}
	var resp struct {
		Documents []Document `json:"documents"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.Documents, nil
}

// DeleteDocument removes a document by id. A document owned by another
// user reports not found, surfaced as an *APIError with status 404.
func (c *Client) DeleteDocument(ctx context.Context, session *Session, documentID string) error {
	if !session.Valid() {
		return ErrNotSignedIn
	}
	req, err := c.newRequest(ctx, session, http.MethodDelete, "/documents/"+documentID, nil, "")
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// ExtractPDF uploads PDF bytes and returns the extracted text.
func (c *Client) ExtractPDF(ctx context.Context, session *Session, fileName string, data []byte) (PDFExtraction, error) {
	if !session.Valid() {
		return PDFExtraction{}, ErrNotSignedIn
	}
	body, contentType, err := multipartFile("file", fileName, data)
	if err != nil {
		return PDFExtraction{}, err
	}
	req, err := c.newRequest(ctx, session, http.MethodPost, "/extract/pdf", body, contentType)
	if err != nil {
		return PDFExtraction{}, err
	}
	var resp PDFExtraction
	if err := c.do(req, &resp); err != nil {
		return PDFExtraction{}, err
	}
	return resp, nil
}

// ExtractScan uploads a captured image and returns the recognized text.
func (c *Client) ExtractScan(ctx context.Context, session *Session, fileName string, imageData []byte) (string, error) {
	if !session.Valid() {
		return "", ErrNotSignedIn
	}
	body, contentType, err := multipartFile("image", fileName, imageData)
	if err != nil {
		return "", err
	}
	req, err := c.newRequest(ctx, session, http.MethodPost, "/extract/scan", body, contentType)
	if err != nil {
		return "", err
	}
	var resp struct {
		Text string `json:"text"`
	}
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Simplify rewrites text into Easy Read style. Failures are one of the
// three kinds callers must tell apart: an *APIError when the service
// failed (carrying the upstream status and detail), ErrNoSimplifiedText
// when the response parsed but carried no text, or the transport error
// when the service was unreachable.
func (c *Client) Simplify(ctx context.Context, session *Session, text string, keepTerms []string) (string, error) {
	if !session.Valid() {
		return "", ErrNotSignedIn
	}
	var resp struct {
		SimplifiedText string `json:"simplifiedText"`
	}
	err := c.postJSON(ctx, session, "/simplify", map[string]any{
		"text":      text,
		"keepTerms": keepTerms,
	}, &resp)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.SimplifiedText) == "" {
		return "", ErrNoSimplifiedText
	}
	return resp.SimplifiedText, nil
}

// RenderPDF converts an HTML document into PDF bytes.
func (c *Client) RenderPDF(ctx context.Context, session *Session, html, fileName string) ([]byte, error) {
	if !session.Valid() {
		return nil, ErrNotSignedIn
	}
	payload, err := json.Marshal(map[string]string{
		"html":     html,
		"fileName": fileName,
	})
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, session, http.MethodPost, "/render", bytes.NewReader(payload), "application/json")
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("render request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("render response read: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeAPIError(resp.StatusCode, body)
	}
	if len(body) == 0 {
		return nil, &APIError{Status: resp.StatusCode, Message: "server returned an empty document"}
	}
	return body, nil
}

func (c *Client) postJSON(ctx context.Context, session *Session, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, session, http.MethodPost, path, bytes.NewReader(body), "application/json")
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, session *Session, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if session.Valid() {
		req.Header.Set("Authorization", "Bearer "+session.Token)
	}
	return req, nil
}

// do issues the request, decodes a JSON answer into out (ignored when
// out is nil), and turns any non-2xx response into an *APIError whose
// message is the server's own.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("response read: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp.StatusCode, body)
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("response decode: %w", err)
	}
	return nil
}

// decodeAPIError pulls the human-readable message out of an error body.
// The service answers {"error":{"message":...}}, but other deployments
// use {"message":...} or {"error":"..."}; all three are honored.
func decodeAPIError(status int, body []byte) *APIError {
	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if len(envelope.Error) > 0 {
			var nested struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(envelope.Error, &nested); err == nil && strings.TrimSpace(nested.Message) != "" {
				return &APIError{Status: status, Message: strings.TrimSpace(nested.Message)}
			}
			var plain string
			if err := json.Unmarshal(envelope.Error, &plain); err == nil && strings.TrimSpace(plain) != "" {
				return &APIError{Status: status, Message: strings.TrimSpace(plain)}
			}
		}
		if strings.TrimSpace(envelope.Message) != "" {
			return &APIError{Status: status, Message: strings.TrimSpace(envelope.Message)}
		}
	}
	return &APIError{Status: status, Message: http.StatusText(status)}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func multipartFile(field, fileName string, data []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, fileName)
	if err != nil {
		return nil, "", err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
