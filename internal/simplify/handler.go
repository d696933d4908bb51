package simplify

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"easyread/internal/llm"
	"easyread/internal/shared/server/respond"
)

// Handler wires the simplify proxy endpoint to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches the simplify route to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/simplify", h.simplify)
}

type simplifyRequest struct {
	Text      string   `json:"text"`
	KeepTerms []string `json:"keepTerms"`
}

type simplifyResponse struct {
	SimplifiedText string `json:"simplifiedText"`
}

// simplify distinguishes the three provider failure modes for callers:
// upstream non-2xx, usable-payload-missing, and unreachable.
func (h *Handler) simplify(c *gin.Context) {
	var req simplifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	out, err := h.Svc.Simplify(c.Request.Context(), req.Text, req.KeepTerms)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyText), errors.Is(err, ErrTextTooLong):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			status, code, message := classifyProviderError(err)
			respond.Error(c, status, code, message, nil)
		}
		return
	}

	respond.OK(c, simplifyResponse{SimplifiedText: out})
}

func classifyProviderError(err error) (int, string, string) {
	var upstream *llm.UpstreamError
	if errors.As(err, &upstream) {
		msg := fmt.Sprintf("simplification service failed (status %d)", upstream.Status)
		if upstream.Message != "" {
			msg += ": " + upstream.Message
		}
		return http.StatusBadGateway, "upstream_error", msg
	}

	var malformed *llm.MalformedError
	if errors.As(err, &malformed) {
		return http.StatusBadGateway, "bad_upstream_response", "simplification service returned no usable text"
	}

	return http.StatusServiceUnavailable, "upstream_unreachable", "simplification service unreachable"
}
