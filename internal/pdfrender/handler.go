package pdfrender

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"easyread/internal/shared/metrics"
	"easyread/internal/shared/server/respond"
	"easyread/internal/shared/util"
)

// Handler serves the HTML-to-PDF render proxy.
type Handler struct {
	Client *Client
}

// NewHandler constructs a Handler.
func NewHandler(client *Client) *Handler {
	return &Handler{Client: client}
}

// RegisterRoutes attaches the render route to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/render", h.render)
}

type renderRequest struct {
	HTML     string `json:"html"`
	FileName string `json:"fileName"`
}

func (h *Handler) render(c *gin.Context) {
	var req renderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.HTML) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "html is required", nil)
		return
	}
	if h.Client == nil {
		respond.Error(c, http.StatusServiceUnavailable, "render_not_configured", "PDF converter not configured", nil)
		return
	}

	pdfBytes, err := h.Client.ConvertHTML(c.Request.Context(), req.HTML)
	if err != nil {
		metrics.IncRenderFailed()
		status, code, message := classifyConverterError(err)
		respond.Error(c, status, code, message, nil)
		return
	}
	metrics.IncRenderCompleted()

	fileName := "document.pdf"
	if trimmed := strings.TrimSpace(req.FileName); trimmed != "" {
		if sanitized, err := util.SanitizeFileName(trimmed); err == nil {
			fileName = sanitized
			if !strings.HasSuffix(strings.ToLower(fileName), ".pdf") {
				fileName += ".pdf"
			}
		}
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

func classifyConverterError(err error) (int, string, string) {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		msg := fmt.Sprintf("PDF converter failed (status %d)", upstream.Status)
		if upstream.Message != "" {
			msg += ": " + upstream.Message
		}
		return http.StatusBadGateway, "upstream_error", msg
	}
	var malformed *MalformedError
	if errors.As(err, &malformed) {
		return http.StatusBadGateway, "bad_upstream_response", "PDF converter returned no usable document"
	}
	return http.StatusServiceUnavailable, "upstream_unreachable", "PDF converter unreachable"
}
