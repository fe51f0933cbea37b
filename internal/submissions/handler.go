package submissions

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/everweb-bridge/backend/internal/models"
	"github.com/everweb-bridge/backend/pkg/response"
)

// Handler handles form submissions.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a submissions handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Submit handles POST /api/submit. The outbound chain is detached from the
// inbound request, so a client disconnect does not stop it.
func (h *Handler) Submit(c *gin.Context) {
	var req models.RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request", err.Error())
		return
	}

	result, err := h.svc.Submit(context.WithoutCancel(c.Request.Context()), req)
	if err != nil {
		h.logger.Error("submission failed", zap.Error(err), zap.String("email", req.Email))
		response.Internal(c, "Failed to submit form or register to EverWebinar", err.Error())
		return
	}
	response.OK(c, result)
}
