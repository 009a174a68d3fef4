package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"audioeq-backend-go/internal/core"
	"audioeq-backend-go/internal/models"
)

// UserHandler handles profile sync.
type UserHandler struct {
	users  core.UserService
	logger *zap.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users core.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// SyncUser handles POST /sync-user: upserts profile metadata on login.
func (h *UserHandler) SyncUser(c *gin.Context) {
	var req models.SyncUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing uid or email", Details: err.Error()})
		return
	}

	if err := h.users.SyncProfile(c.Request.Context(), &req); err != nil {
		if errors.Is(err, core.ErrRemoteUnavailable) {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Firestore not initialized"})
			return
		}
		h.logger.Error("Profile sync failed", zap.String("uid", req.UID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Profile sync failed", Details: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SyncUserResponse{Status: "synced"})
}
