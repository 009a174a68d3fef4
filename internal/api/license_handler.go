package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"audioeq-backend-go/internal/core"
	"audioeq-backend-go/internal/models"
	"audioeq-backend-go/internal/payments"
)

// LicenseHandler handles entitlement queries, promo/pass redemption and
// restore-purchase.
type LicenseHandler struct {
	licenses core.LicenseService
	promos   core.PromoService
	logger   *zap.Logger
}

// NewLicenseHandler creates a new LicenseHandler.
func NewLicenseHandler(licenses core.LicenseService, promos core.PromoService, logger *zap.Logger) *LicenseHandler {
	return &LicenseHandler{licenses: licenses, promos: promos, logger: logger}
}

// CheckLicense handles GET /check-license?email=...&uid=...
func (h *LicenseHandler) CheckLicense(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Email is required"})
		return
	}
	uid := c.Query("uid")

	result, err := h.licenses.CheckEntitlement(c.Request.Context(), email, uid)
	if err != nil {
		h.logger.Error("Entitlement check failed", zap.String("email", email), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Entitlement check failed", Details: err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// VerifyAppPass handles POST /verify-app-pass: promo code redemption.
func (h *LicenseHandler) VerifyAppPass(c *gin.Context) {
	var req models.VerifyAppPassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "email, uid and code are required", Details: err.Error()})
		return
	}

	err := h.promos.Redeem(c.Request.Context(), req.Code, req.UID, req.Email)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, StatusMessageResponse{
			Status:  "approved",
			Message: "Premium activated for 30 days",
		})
	case errors.Is(err, core.ErrInvalidCode):
		c.JSON(http.StatusBadRequest, StatusMessageResponse{
			Status:  "invalid",
			Message: "The code is not valid",
		})
	case errors.Is(err, core.ErrAlreadyUsed):
		c.JSON(http.StatusConflict, StatusMessageResponse{
			Status:  "already_used",
			Message: "This code was already redeemed by another account",
		})
	case errors.Is(err, core.ErrPromoUnavailable):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Promo redemption unavailable"})
	default:
		h.logger.Error("Promo redemption failed", zap.String("uid", req.UID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Promo redemption failed", Details: err.Error()})
	}
}

// VerifyOfficialAppPass handles POST /verify-official-app-pass: third-party
// pass token validation.
func (h *LicenseHandler) VerifyOfficialAppPass(c *gin.Context) {
	var req models.VerifyOfficialAppPassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "email, uid and token are required", Details: err.Error()})
		return
	}

	err := h.promos.VerifyOfficialPass(c.Request.Context(), req.Token, req.UID, req.Email)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, StatusMessageResponse{
			Status:  "approved",
			Message: "Premium activated for 30 days",
		})
	case errors.Is(err, core.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, StatusMessageResponse{
			Status:  "invalid",
			Message: "The pass token was rejected",
		})
	case errors.Is(err, payments.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Pass validation unavailable"})
	default:
		h.logger.Error("Pass validation failed", zap.String("uid", req.UID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Pass validation failed", Details: err.Error()})
	}
}

// RestorePurchase handles POST /restore-purchase: search provider history
// and re-activate the account. A miss is a negative result, not an error.
func (h *LicenseHandler) RestorePurchase(c *gin.Context) {
	var req models.RestorePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Account email required", Details: err.Error()})
		return
	}

	result, err := h.licenses.RestorePurchase(c.Request.Context(), req.Email, req.PayerEmail, req.PaymentID, req.UID)
	if err != nil {
		if errors.Is(err, payments.ErrNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Payment service unavailable"})
			return
		}
		h.logger.Error("Restore failed", zap.String("email", req.Email), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Restore failed", Details: err.Error()})
		return
	}

	if !result.Found {
		c.JSON(http.StatusOK, RestorePurchaseResponse{
			Status:  "not_found",
			Message: "No approved payments found for the provided details.",
		})
		return
	}

	c.JSON(http.StatusOK, RestorePurchaseResponse{
		Status:     "restored",
		Message:    "Premium restored! Linked payment " + result.PaymentID + " to " + req.Email,
		PaymentID:  result.PaymentID,
		Expiration: result.Expiration,
	})
}
