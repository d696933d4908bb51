package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"easyread/internal/ocr"
	"easyread/internal/shared/metrics"
	"easyread/internal/shared/server/middleware"
	"easyread/internal/shared/server/respond"
	"easyread/internal/shared/storage/object"
	"easyread/internal/shared/telemetry"
)

// minTextLayerChars is the threshold under which a parsed PDF is treated
// as scanned and handed to the OCR fallback.
const minTextLayerChars = 32

// Handler serves the extraction proxy endpoints. Uploads are retained in
// the object store together with a derived .extracted.txt object.
type Handler struct {
	Store        object.ObjectStore
	Engine       ocr.Engine
	MaxPDFBytes  int64
	MaxScanBytes int64
	OCRFallback  bool

	// seams for tests
	pdfPages func(data []byte) ([]string, error)
	ocrPages func(ctx context.Context, engine ocr.Engine, data []byte) ([]string, error)
}

// NewHandler constructs a Handler.
func NewHandler(store object.ObjectStore, engine ocr.Engine, maxPDFBytes, maxScanBytes int64, ocrFallback bool) *Handler {
	return &Handler{
		Store:        store,
		Engine:       engine,
		MaxPDFBytes:  maxPDFBytes,
		MaxScanBytes: maxScanBytes,
		OCRFallback:  ocrFallback,
		pdfPages:     PDFPages,
		ocrPages:     OCRPages,
	}
}

// RegisterRoutes attaches the extraction routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/extract/pdf", h.extractPDF)
	rg.POST("/extract/scan", h.extractScan)
}

type pdfResponse struct {
	Text           string `json:"text"`
	SuggestedTitle string `json:"suggestedTitle"`
	Pages          int    `json:"pages"`
}

type scanResponse struct {
	Text string `json:"text"`
}

func (h *Handler) extractPDF(c *gin.Context) {
	data, fileName, ok := h.readUpload(c, "file", h.MaxPDFBytes)
	if !ok {
		return
	}

	userID := middleware.UserIDFromContext(c)
	key, _, _, err := h.Store.Save(c.Request.Context(), userID, fileName, bytes.NewReader(data))
	if err != nil {
		metrics.IncExtractFailed()
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to store upload", nil)
		return
	}

	pages, err := h.pdfPages(data)
	if err != nil {
		metrics.IncExtractFailed()
		respond.Error(c, http.StatusBadRequest, "extract_failed", "could not read the PDF", nil)
		return
	}
	pageCount := len(pages)
	text := JoinPages(pages)

	if len(text) < minTextLayerChars && h.OCRFallback && h.Engine != nil {
		ocrTexts, ocrErr := h.ocrPages(c.Request.Context(), h.Engine, data)
		if ocrErr != nil {
			metrics.IncExtractFailed()
			status, code, message := classifyOCRError(ocrErr)
			respond.Error(c, status, code, message, nil)
			return
		}
		pageCount = len(ocrTexts)
		text = JoinPages(ocrTexts)
	}

	if err := saveExtracted(c.Request.Context(), h.Store, key+".extracted.txt", text); err != nil {
		telemetry.Error("extract.retain_failed", map[string]any{
			"key":   key,
			"error": err.Error(),
		})
	}

	metrics.IncExtractCompleted()
	respond.OK(c, pdfResponse{
		Text:           text,
		SuggestedTitle: titleFromFileName(fileName),
		Pages:          pageCount,
	})
}

func (h *Handler) extractScan(c *gin.Context) {
	data, fileName, ok := h.readUpload(c, "image", h.MaxScanBytes)
	if !ok {
		return
	}

	if h.Engine == nil {
		respond.Error(c, http.StatusServiceUnavailable, "ocr_not_configured", "OCR engine not configured", nil)
		return
	}

	userID := middleware.UserIDFromContext(c)
	if _, _, _, err := h.Store.Save(c.Request.Context(), userID, fileName, bytes.NewReader(data)); err != nil {
		metrics.IncExtractFailed()
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to store upload", nil)
		return
	}

	mimeType := http.DetectContentType(sniffPrefix(data))
	text, err := h.Engine.RecognizeImage(c.Request.Context(), data, mimeType)
	if err != nil {
		metrics.IncExtractFailed()
		status, code, message := classifyOCRError(err)
		respond.Error(c, status, code, message, nil)
		return
	}

	metrics.IncExtractCompleted()
	respond.OK(c, scanResponse{Text: strings.TrimSpace(text)})
}

// readUpload fetches one multipart file, enforcing the byte cap before
// the payload is processed. Responds on failure and reports ok=false.
func (h *Handler) readUpload(c *gin.Context, field string, maxBytes int64) ([]byte, string, bool) {
	if maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	}

	fileHeader, err := c.FormFile(field)
	if err != nil {
		if isTooLarge(err) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large",
				fmt.Sprintf("upload exceeds the %d MB limit", maxBytes>>20), nil)
			return nil, "", false
		}
		respond.Error(c, http.StatusBadRequest, "validation_error",
			fmt.Sprintf("multipart field %q is required", field), nil)
		return nil, "", false
	}
	if maxBytes > 0 && fileHeader.Size > maxBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large",
			fmt.Sprintf("upload exceeds the %d MB limit", maxBytes>>20), nil)
		return nil, "", false
	}

	data, err := readAllFile(fileHeader)
	if err != nil {
		if isTooLarge(err) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large",
				fmt.Sprintf("upload exceeds the %d MB limit", maxBytes>>20), nil)
			return nil, "", false
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "could not read upload", nil)
		return nil, "", false
	}
	return data, fileHeader.Filename, true
}

func readAllFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "request body too large")
}

func classifyOCRError(err error) (int, string, string) {
	var upstream *ocr.UpstreamError
	if errors.As(err, &upstream) {
		msg := fmt.Sprintf("OCR service failed (status %d)", upstream.Status)
		if upstream.Message != "" {
			msg += ": " + upstream.Message
		}
		return http.StatusBadGateway, "upstream_error", msg
	}
	var malformed *ocr.MalformedError
	if errors.As(err, &malformed) {
		return http.StatusBadGateway, "bad_upstream_response", "OCR service returned no usable text"
	}
	if errors.Is(err, ocr.ErrNotConfigured) {
		return http.StatusServiceUnavailable, "ocr_not_configured", "OCR engine not configured"
	}
	return http.StatusServiceUnavailable, "upstream_unreachable", "OCR service unreachable"
}

func titleFromFileName(fileName string) string {
	base := filepath.Base(strings.TrimSpace(fileName))
	if base == "." || base == "/" || base == "" {
		return "Document"
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func sniffPrefix(data []byte) []byte {
	if len(data) > 512 {
		return data[:512]
	}
	return data
}
