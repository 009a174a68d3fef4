package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"audioeq-backend-go/internal/config"
	"audioeq-backend-go/internal/core"
	"audioeq-backend-go/internal/models"
	"audioeq-backend-go/internal/payments"
)

// PaymentHandler handles the payment-provider endpoints: checkout creation,
// synchronous card charges, the MercadoPago webhook and PayPal registration.
type PaymentHandler struct {
	appConfig   *config.Config
	mercadoPago core.MercadoPagoGateway
	payPal      core.PayPalGateway
	licenses    core.LicenseService
	logger      *zap.Logger
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(
	appConfig *config.Config,
	mercadoPago core.MercadoPagoGateway,
	payPal core.PayPalGateway,
	licenses core.LicenseService,
	logger *zap.Logger,
) *PaymentHandler {
	return &PaymentHandler{
		appConfig:   appConfig,
		mercadoPago: mercadoPago,
		payPal:      payPal,
		licenses:    licenses,
		logger:      logger,
	}
}

// CreatePayment handles POST /create-payment: it creates a MercadoPago
// checkout preference carrying the account identifiers in its metadata so
// the webhook can attribute the eventual payment.
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	if !h.mercadoPago.Configured() {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Payment service unavailable (Configuration error)"})
		return
	}

	var req models.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Email is required", Details: err.Error()})
		return
	}

	title := req.Item
	if title == "" {
		title = h.appConfig.PremiumTitle
	}

	preference := &payments.PreferenceRequest{
		Items: []payments.PreferenceItem{{
			Title:      title,
			Quantity:   1,
			CurrencyID: "COP",
			UnitPrice:  h.appConfig.PremiumPriceCOP,
		}},
		Payer: map[string]interface{}{"email": req.Email},
		Metadata: map[string]interface{}{
			"uid":       req.UID,
			"email":     req.Email,
			"plan_type": req.PlanType,
		},
		ExternalReference: req.Email,
		NotificationURL:   h.appConfig.BackendURL + "/webhook/mercadopago",
		BackURLs: payments.BackURLs{
			Success: h.appConfig.FrontendURL + "/premium",
			Failure: h.appConfig.FrontendURL + "/premium",
			Pending: h.appConfig.FrontendURL + "/premium",
		},
		AutoReturn: "approved",
		PaymentMethods: map[string]interface{}{
			"excluded_payment_types": []interface{}{},
			"installments":           12,
		},
	}

	h.logger.Info("Creating checkout preference",
		zap.String("email", req.Email), zap.String("uid", req.UID))

	created, err := h.mercadoPago.CreatePreference(c.Request.Context(), preference)
	if err != nil {
		h.logger.Error("Preference creation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "MercadoPago API Error", Details: err.Error()})
		return
	}

	c.JSON(http.StatusOK, CreatePaymentResponse{
		PaymentURL:   created.InitPoint,
		PreferenceID: created.ID,
	})
}

// ProcessPayment handles POST /process_payment: the synchronous Brick card
// charge. When the provider approves immediately, the license is activated
// in the same request; otherwise the webhook finishes the job later.
func (h *PaymentHandler) ProcessPayment(c *gin.Context) {
	if !h.mercadoPago.Configured() {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Payment service unavailable (Configuration error)"})
		return
	}

	var req models.ProcessPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid payment payload", Details: err.Error()})
		return
	}

	description := req.Description
	if description == "" {
		description = h.appConfig.PremiumTitle
	}
	installments := req.Installments
	if installments == 0 {
		installments = 1
	}

	payer := map[string]interface{}{
		"email": req.Payer.Email,
		"identification": map[string]interface{}{
			"type":   req.Payer.Identification.Type,
			"number": req.Payer.Identification.Number,
		},
	}
	// PSE requires entity_type; other methods reject it.
	if req.Payer.EntityType != "" {
		payer["entity_type"] = req.Payer.EntityType
	}

	payment := map[string]interface{}{
		"transaction_amount": req.TransactionAmount,
		"token":              req.Token,
		"description":        description,
		"installments":       installments,
		"payment_method_id":  req.PaymentMethodID,
		"notification_url":   h.appConfig.BackendURL + "/webhook/mercadopago",
		"metadata": map[string]interface{}{
			"uid":       req.UID,
			"email":     req.Payer.Email,
			"plan_type": req.PlanType,
		},
		"payer":              payer,
		"external_reference": req.Payer.Email,
		// Required for PSE / 3DS redirects.
		"callback_url": h.appConfig.FrontendURL + "/premium",
		"additional_info": map[string]interface{}{
			"ip_address": c.ClientIP(),
		},
	}
	if req.IssuerID != "" {
		if issuer, err := strconv.Atoi(req.IssuerID); err == nil {
			payment["issuer_id"] = issuer
		}
	}
	if req.TransactionDetails != nil {
		payment["transaction_details"] = req.TransactionDetails
	}

	created, err := h.mercadoPago.CreatePayment(c.Request.Context(), payment)
	if err != nil {
		h.logger.Error("Brick payment failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Payment processing failed", Details: err.Error()})
		return
	}

	h.logger.Info("Brick payment processed",
		zap.String("status", created.Status),
		zap.String("paymentId", created.PaymentID()))

	if created.Approved() {
		email := created.ExternalReference
		if email == "" {
			email = req.Payer.Email
		}
		if _, err := h.licenses.Activate(c.Request.Context(), core.ActivationInput{
			Email:     email,
			UID:       req.UID,
			PlanType:  req.PlanType,
			PaymentID: created.PaymentID(),
			Method:    models.MethodMercadoPagoBrick,
		}); err != nil {
			// The charge already went through; the webhook retry will
			// reconcile the license.
			h.logger.Error("Activation after approved charge failed", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, created.Raw)
}

// Webhook handles POST /webhook/mercadopago. The notification id is never
// trusted directly: the payment is re-fetched from the provider and only an
// approved status activates. The envelope is always acknowledged with 200
// once parsed, so the provider does not retry deliberate declines.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	var envelope models.WebhookEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid webhook payload", Details: err.Error()})
		return
	}

	h.logger.Info("Received webhook",
		zap.String("action", envelope.Action),
		zap.String("type", envelope.Type),
		zap.String("dataId", envelope.Data.ID))

	if (envelope.Action == "payment.created" || envelope.Type == "payment") && envelope.Data.ID != "" {
		h.processPaymentNotification(c, envelope.Data.ID)
	}

	c.JSON(http.StatusOK, WebhookAck{Status: "received"})
}

func (h *PaymentHandler) processPaymentNotification(c *gin.Context, paymentID string) {
	payment, err := h.mercadoPago.GetPayment(c.Request.Context(), paymentID)
	if err != nil {
		// Verification failure is never approval; acknowledge and let the
		// provider retry the notification.
		h.logger.Error("Webhook payment verification failed",
			zap.String("paymentId", paymentID), zap.Error(err))
		return
	}

	email := payment.ExternalReference
	uid := payment.MetadataString("uid")

	h.logger.Info("Webhook payment verified",
		zap.String("paymentId", payment.PaymentID()),
		zap.String("status", payment.Status),
		zap.String("email", email),
		zap.String("uid", uid))

	if !payment.Approved() {
		return
	}
	if email == "" {
		h.logger.Warn("Approved payment carries no external_reference; cannot attribute",
			zap.String("paymentId", payment.PaymentID()))
		return
	}

	if _, err := h.licenses.Activate(c.Request.Context(), core.ActivationInput{
		Email:     email,
		UID:       uid,
		PlanType:  payment.MetadataString("plan_type"),
		PaymentID: payment.PaymentID(),
		Method:    models.MethodMercadoPago,
	}); err != nil {
		h.logger.Error("Webhook activation failed",
			zap.String("email", email), zap.Error(err))
	}
}

// RegisterPayPal handles POST /register-paypal: a client-asserted one-time
// order or subscription. Orders are verified best-effort (soft-fail: the
// purchase is honored and the failed verification logged); subscriptions
// must be ACTIVE to activate.
func (h *PaymentHandler) RegisterPayPal(c *gin.Context) {
	var req models.RegisterPayPalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}
	if req.OrderID == "" && req.SubscriptionID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing orderID or subscriptionID"})
		return
	}
	if !h.payPal.Configured() {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Payment service unavailable (Configuration error)"})
		return
	}

	if req.SubscriptionID != "" {
		h.registerSubscription(c, &req)
		return
	}
	h.registerOrder(c, &req)
}

func (h *PaymentHandler) registerSubscription(c *gin.Context, req *models.RegisterPayPalRequest) {
	subscription, err := h.payPal.GetSubscription(c.Request.Context(), req.SubscriptionID)
	if err != nil {
		h.logger.Error("Subscription lookup failed",
			zap.String("subscriptionId", req.SubscriptionID), zap.Error(err))
		mapProviderError(c, err)
		return
	}

	if !subscription.Active() {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Subscription is not active",
			Details: "status: " + subscription.Status,
		})
		return
	}

	email := req.Email
	if email == "" {
		email = subscription.Subscriber.EmailAddress
	}
	if email == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "No account email available for subscription"})
		return
	}

	license, err := h.licenses.Activate(c.Request.Context(), core.ActivationInput{
		Email:       email,
		UID:         req.UID,
		PlanType:    req.PlanType,
		PaymentID:   "PAYPAL_SUB_" + req.SubscriptionID,
		Method:      models.MethodPayPalSubscription,
		NextBilling: subscription.NextBilling(),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Activation failed", Details: err.Error()})
		return
	}

	c.JSON(http.StatusOK, RegisterPayPalResponse{
		Status:     "active",
		Email:      email,
		Expiration: license.ExpirationDate,
	})
}

func (h *PaymentHandler) registerOrder(c *gin.Context, req *models.RegisterPayPalRequest) {
	if req.Email == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing email or orderID"})
		return
	}

	verified, order, err := h.payPal.VerifyOrder(c.Request.Context(), req.OrderID)
	if err != nil || !verified {
		// Soft-fail: an unverifiable client-asserted order is honored and
		// logged rather than blocking the user on a provider hiccup. An
		// intentional trust tradeoff.
		h.logger.Warn("PayPal order verification failed; proceeding anyway",
			zap.String("orderId", req.OrderID), zap.Error(err))
	} else {
		h.logger.Info("PayPal order verified",
			zap.String("orderId", order.ID), zap.String("status", order.Status))
	}

	license, err := h.licenses.Activate(c.Request.Context(), core.ActivationInput{
		Email:     req.Email,
		UID:       req.UID,
		PlanType:  req.PlanType,
		PaymentID: "PAYPAL_" + req.OrderID,
		Method:    models.MethodPayPal,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Activation failed", Details: err.Error()})
		return
	}

	c.JSON(http.StatusOK, RegisterPayPalResponse{
		Status:     "approved",
		Email:      req.Email,
		Expiration: license.ExpirationDate,
	})
}

// mapProviderError distinguishes missing configuration from provider
// failures for endpoints that talk to an adapter directly.
func mapProviderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, payments.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Payment service unavailable (Configuration error)"})
	case errors.Is(err, payments.ErrAuth):
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Provider authentication failed"})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "An unexpected internal server error occurred.", Details: err.Error()})
	}
}
