package schedules

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/everweb-bridge/backend/internal/everwebinar"
	"github.com/everweb-bridge/backend/pkg/response"
)

// ErrorDetails is the diagnostic payload of a failed listing.
type ErrorDetails struct {
	Message  string          `json:"message"`
	Response json.RawMessage `json:"response,omitempty"`
}

// Handler serves the schedule listing.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a schedules handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// List handles GET /api/schedules.
func (h *Handler) List(c *gin.Context) {
	ctx := context.WithoutCancel(c.Request.Context())
	entries, err := h.svc.List(ctx)
	if err != nil {
		details := ErrorDetails{Message: err.Error()}
		var apiErr *everwebinar.APIError
		if errors.As(err, &apiErr) {
			details.Response = apiErr.Body
		}
		h.logger.Error("fetch schedules failed", zap.Error(err), zap.ByteString("provider_response", details.Response))
		response.Internal(c, "Failed to fetch schedules", details)
		return
	}
	response.OK(c, entries)
}
