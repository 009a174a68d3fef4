package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"audioeq-backend-go/internal/core"
	"audioeq-backend-go/internal/models"
)

// SupportHandler handles the support-mail endpoint.
type SupportHandler struct {
	support core.SupportService
	logger  *zap.Logger
}

// NewSupportHandler creates a new SupportHandler.
func NewSupportHandler(support core.SupportService, logger *zap.Logger) *SupportHandler {
	return &SupportHandler{support: support, logger: logger}
}

// SendSupport handles POST /api/support.
func (h *SupportHandler) SendSupport(c *gin.Context) {
	var req models.SupportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "email, subject and message are required", Details: err.Error()})
		return
	}

	ticketID, err := h.support.SendTicket(c.Request.Context(), req.Email, req.Subject, req.Message)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, SupportResponse{Success: true, ID: ticketID})
	case errors.Is(err, core.ErrSupportUnavailable):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Support mail is not configured"})
	case errors.Is(err, core.ErrMailDelivery):
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "Support mail could not be delivered"})
	default:
		h.logger.Error("Support request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Support request failed", Details: err.Error()})
	}
}
