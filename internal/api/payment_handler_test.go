package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"audioeq-backend-go/internal/config"
	"audioeq-backend-go/internal/core"
	"audioeq-backend-go/internal/models"
	"audioeq-backend-go/internal/payments"
)

// --- service/gateway stubs --------------------------------------------------

type stubLicenseService struct {
	activations   []core.ActivationInput
	activateErr   error
	checkResult   *core.EntitlementResult
	checkErr      error
	restoreResult *core.RestoreResult
	restoreErr    error
}

func (s *stubLicenseService) Activate(_ context.Context, input core.ActivationInput) (*models.License, error) {
	if s.activateErr != nil {
		return nil, s.activateErr
	}
	s.activations = append(s.activations, input)
	expiration := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	return &models.License{Email: input.Email, IsPremium: true, ExpirationDate: &expiration}, nil
}

func (s *stubLicenseService) CheckEntitlement(context.Context, string, string) (*core.EntitlementResult, error) {
	return s.checkResult, s.checkErr
}

func (s *stubLicenseService) RestorePurchase(context.Context, string, string, string, string) (*core.RestoreResult, error) {
	return s.restoreResult, s.restoreErr
}

type stubPromoService struct {
	redeemErr error
	verifyErr error
}

func (s *stubPromoService) Redeem(context.Context, string, string, string) error { return s.redeemErr }

func (s *stubPromoService) VerifyOfficialPass(context.Context, string, string, string) error {
	return s.verifyErr
}

type stubUserService struct {
	syncErr error
	synced  []*models.SyncUserRequest
}

func (s *stubUserService) SyncProfile(_ context.Context, req *models.SyncUserRequest) error {
	if s.syncErr != nil {
		return s.syncErr
	}
	s.synced = append(s.synced, req)
	return nil
}

type stubSupportService struct {
	ticketID string
	err      error
}

func (s *stubSupportService) SendTicket(context.Context, string, string, string) (string, error) {
	return s.ticketID, s.err
}

type stubMercadoPago struct {
	configured    bool
	preference    *payments.Preference
	preferenceErr error
	preferenceReq *payments.PreferenceRequest
	created       *payments.Payment
	createErr     error
	createdReq    map[string]interface{}
	payment       *payments.Payment
	getErr        error
}

func (s *stubMercadoPago) Configured() bool { return s.configured }

func (s *stubMercadoPago) CreatePreference(_ context.Context, req *payments.PreferenceRequest) (*payments.Preference, error) {
	s.preferenceReq = req
	return s.preference, s.preferenceErr
}

func (s *stubMercadoPago) CreatePayment(_ context.Context, req map[string]interface{}) (*payments.Payment, error) {
	s.createdReq = req
	return s.created, s.createErr
}

func (s *stubMercadoPago) GetPayment(context.Context, string) (*payments.Payment, error) {
	return s.payment, s.getErr
}

func (s *stubMercadoPago) SearchPayments(context.Context, string) ([]payments.Payment, error) {
	return nil, nil
}

type stubPayPal struct {
	configured      bool
	verified        bool
	order           *payments.Order
	verifyErr       error
	subscription    *payments.Subscription
	subscriptionErr error
}

func (s *stubPayPal) Configured() bool { return s.configured }

func (s *stubPayPal) VerifyOrder(context.Context, string) (bool, *payments.Order, error) {
	return s.verified, s.order, s.verifyErr
}

func (s *stubPayPal) GetSubscription(context.Context, string) (*payments.Subscription, error) {
	return s.subscription, s.subscriptionErr
}

type testEnv struct {
	router   *gin.Engine
	licenses *stubLicenseService
	promos   *stubPromoService
	users    *stubUserService
	support  *stubSupportService
	mp       *stubMercadoPago
	paypal   *stubPayPal
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		licenses: &stubLicenseService{},
		promos:   &stubPromoService{},
		users:    &stubUserService{},
		support:  &stubSupportService{ticketID: "ticket-1"},
		mp:       &stubMercadoPago{configured: true},
		paypal:   &stubPayPal{configured: true},
	}

	appConfig := &config.Config{
		PremiumPriceCOP: 20000,
		PremiumTitle:    "Smart Audio EQ Premium",
		FrontendURL:     "https://frontend.example",
		BackendURL:      "https://backend.example",
	}

	env.router = gin.New()
	SetupRoutes(env.router, appConfig, zap.NewNop(),
		env.licenses, env.promos, env.users, env.support, env.mp, env.paypal)
	return env
}

func performJSON(t *testing.T, router *gin.Engine, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

// --- /create-payment --------------------------------------------------------

func TestCreatePaymentBuildsPreference(t *testing.T) {
	env := newTestEnv(t)
	env.mp.preference = &payments.Preference{ID: "pref-1", InitPoint: "https://mp.example/pref-1"}

	recorder := performJSON(t, env.router, http.MethodPost, "/create-payment", gin.H{
		"email":     "user@example.com",
		"uid":       "uid-1",
		"plan_type": "yearly",
	})

	require.Equal(t, http.StatusOK, recorder.Code)
	var response CreatePaymentResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "pref-1", response.PreferenceID)
	assert.Equal(t, "https://mp.example/pref-1", response.PaymentURL)

	sent := env.mp.preferenceReq
	require.NotNil(t, sent)
	require.Len(t, sent.Items, 1)
	assert.Equal(t, "Smart Audio EQ Premium", sent.Items[0].Title)
	assert.Equal(t, 20000.0, sent.Items[0].UnitPrice)
	assert.Equal(t, "COP", sent.Items[0].CurrencyID)
	assert.Equal(t, "user@example.com", sent.ExternalReference)
	assert.Equal(t, "https://backend.example/webhook/mercadopago", sent.NotificationURL)
	assert.Equal(t, "https://frontend.example/premium", sent.BackURLs.Success)
	assert.Equal(t, "uid-1", sent.Metadata["uid"])
	assert.Equal(t, "yearly", sent.Metadata["plan_type"])
}

func TestCreatePaymentRequiresEmail(t *testing.T) {
	env := newTestEnv(t)

	recorder := performJSON(t, env.router, http.MethodPost, "/create-payment", gin.H{"uid": "uid-1"})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestCreatePaymentUnconfiguredProvider(t *testing.T) {
	env := newTestEnv(t)
	env.mp.configured = false

	recorder := performJSON(t, env.router, http.MethodPost, "/create-payment", gin.H{"email": "user@example.com"})
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
}

// --- /process_payment -------------------------------------------------------

func brickRequest() gin.H {
	return gin.H{
		"transaction_amount": 20000,
		"token":              "card-token",
		"payment_method_id":  "visa",
		"uid":                "uid-1",
		"plan_type":          "monthly",
		"payer": gin.H{
			"email": "payer@example.com",
			"identification": gin.H{
				"type":   "CC",
				"number": "1234567890",
			},
		},
	}
}

func TestProcessPaymentApprovedActivates(t *testing.T) {
	env := newTestEnv(t)
	env.mp.created = &payments.Payment{
		ID: 555, Status: "approved", ExternalReference: "payer@example.com",
		Raw: map[string]interface{}{"id": float64(555), "status": "approved"},
	}

	recorder := performJSON(t, env.router, http.MethodPost, "/process_payment", brickRequest())

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Len(t, env.licenses.activations, 1)
	activation := env.licenses.activations[0]
	assert.Equal(t, "payer@example.com", activation.Email)
	assert.Equal(t, "555", activation.PaymentID)
	assert.Equal(t, models.MethodMercadoPagoBrick, activation.Method)

	// The provider object passes through to the Brick widget.
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &raw))
	assert.Equal(t, "approved", raw["status"])
}

func TestProcessPaymentRejectedDoesNotActivate(t *testing.T) {
	env := newTestEnv(t)
	env.mp.created = &payments.Payment{
		ID: 556, Status: "rejected", StatusDetail: "cc_rejected_insufficient_amount",
		Raw: map[string]interface{}{"status": "rejected"},
	}

	recorder := performJSON(t, env.router, http.MethodPost, "/process_payment", brickRequest())

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Empty(t, env.licenses.activations)
}

func TestProcessPaymentProviderFailure(t *testing.T) {
	env := newTestEnv(t)
	env.mp.createErr = payments.ErrProvider

	recorder := performJSON(t, env.router, http.MethodPost, "/process_payment", brickRequest())

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Empty(t, env.licenses.activations)
}

func TestProcessPaymentDefaultsInstallments(t *testing.T) {
	env := newTestEnv(t)
	env.mp.created = &payments.Payment{Status: "pending", Raw: map[string]interface{}{}}

	performJSON(t, env.router, http.MethodPost, "/process_payment", brickRequest())

	require.NotNil(t, env.mp.createdReq)
	assert.Equal(t, 1, env.mp.createdReq["installments"])
	assert.Equal(t, "payer@example.com", env.mp.createdReq["external_reference"])
}

// --- /webhook/mercadopago ---------------------------------------------------

func webhookEnvelope(id string) gin.H {
	return gin.H{"action": "payment.created", "type": "payment", "data": gin.H{"id": id}}
}

func TestWebhookApprovedPaymentActivates(t *testing.T) {
	env := newTestEnv(t)
	env.mp.payment = &payments.Payment{
		ID: 777, Status: "approved", ExternalReference: "user@example.com",
		Metadata: map[string]interface{}{"uid": "uid-1", "plan_type": "yearly"},
	}

	recorder := performJSON(t, env.router, http.MethodPost, "/webhook/mercadopago", webhookEnvelope("777"))

	assert.Equal(t, http.StatusOK, recorder.Code)
	require.Len(t, env.licenses.activations, 1)
	activation := env.licenses.activations[0]
	assert.Equal(t, "user@example.com", activation.Email)
	assert.Equal(t, "uid-1", activation.UID)
	assert.Equal(t, "yearly", activation.PlanType)
	assert.Equal(t, models.MethodMercadoPago, activation.Method)
}

func TestWebhookNonApprovedPaymentAcknowledgedWithoutActivation(t *testing.T) {
	env := newTestEnv(t)
	env.mp.payment = &payments.Payment{ID: 778, Status: "rejected", ExternalReference: "user@example.com"}

	recorder := performJSON(t, env.router, http.MethodPost, "/webhook/mercadopago", webhookEnvelope("778"))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Empty(t, env.licenses.activations)
}

func TestWebhookVerificationFailureStillAcknowledged(t *testing.T) {
	env := newTestEnv(t)
	env.mp.getErr = payments.ErrProvider

	recorder := performJSON(t, env.router, http.MethodPost, "/webhook/mercadopago", webhookEnvelope("779"))

	// Failure to verify is never approval, but the envelope is acked so the
	// provider retries instead of giving up.
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Empty(t, env.licenses.activations)
}

func TestWebhookIgnoresUnrelatedEvents(t *testing.T) {
	env := newTestEnv(t)

	recorder := performJSON(t, env.router, http.MethodPost, "/webhook/mercadopago", gin.H{
		"action": "merchant_order.updated", "type": "merchant_order", "data": gin.H{"id": "1"},
	})

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Empty(t, env.licenses.activations)
}

func TestWebhookMalformedPayload(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/webhook/mercadopago", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	env.router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

// --- /register-paypal -------------------------------------------------------

func TestRegisterPayPalOrderVerified(t *testing.T) {
	env := newTestEnv(t)
	env.paypal.verified = true
	env.paypal.order = &payments.Order{ID: "order-1", Status: "COMPLETED"}

	recorder := performJSON(t, env.router, http.MethodPost, "/register-paypal", gin.H{
		"email": "user@example.com", "uid": "uid-1", "orderID": "order-1",
	})

	require.Equal(t, http.StatusOK, recorder.Code)
	var response RegisterPayPalResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "approved", response.Status)

	require.Len(t, env.licenses.activations, 1)
	assert.Equal(t, "PAYPAL_order-1", env.licenses.activations[0].PaymentID)
	assert.Equal(t, models.MethodPayPal, env.licenses.activations[0].Method)
}

func TestRegisterPayPalOrderVerificationSoftFails(t *testing.T) {
	env := newTestEnv(t)
	env.paypal.verifyErr = payments.ErrProvider

	recorder := performJSON(t, env.router, http.MethodPost, "/register-paypal", gin.H{
		"email": "user@example.com", "orderID": "order-2",
	})

	// One-time orders are honored even when verification is unavailable.
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Len(t, env.licenses.activations, 1)
}

func TestRegisterPayPalSubscriptionActive(t *testing.T) {
	env := newTestEnv(t)
	subscription := &payments.Subscription{ID: "sub-1", Status: "ACTIVE"}
	subscription.Subscriber.EmailAddress = "sub@example.com"
	subscription.BillingInfo.NextBillingTime = "2026-11-01T00:00:00Z"
	env.paypal.subscription = subscription

	recorder := performJSON(t, env.router, http.MethodPost, "/register-paypal", gin.H{
		"uid": "uid-1", "subscriptionID": "sub-1", "plan_type": "monthly",
	})

	require.Equal(t, http.StatusOK, recorder.Code)
	var response RegisterPayPalResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "active", response.Status)
	// Account email falls back to the subscriber.
	assert.Equal(t, "sub@example.com", response.Email)

	require.Len(t, env.licenses.activations, 1)
	activation := env.licenses.activations[0]
	assert.Equal(t, "PAYPAL_SUB_sub-1", activation.PaymentID)
	require.NotNil(t, activation.NextBilling)
	assert.Equal(t, time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC), activation.NextBilling.UTC())
}

func TestRegisterPayPalSubscriptionInactiveHardFails(t *testing.T) {
	env := newTestEnv(t)
	env.paypal.subscription = &payments.Subscription{ID: "sub-2", Status: "CANCELLED"}

	recorder := performJSON(t, env.router, http.MethodPost, "/register-paypal", gin.H{
		"email": "user@example.com", "subscriptionID": "sub-2",
	})

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Empty(t, env.licenses.activations)
}

func TestRegisterPayPalSubscriptionLookupFailure(t *testing.T) {
	env := newTestEnv(t)
	env.paypal.subscriptionErr = payments.ErrAuth

	recorder := performJSON(t, env.router, http.MethodPost, "/register-paypal", gin.H{
		"email": "user@example.com", "subscriptionID": "sub-3",
	})

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Empty(t, env.licenses.activations)
}

func TestRegisterPayPalRequiresOrderOrSubscription(t *testing.T) {
	env := newTestEnv(t)

	recorder := performJSON(t, env.router, http.MethodPost, "/register-paypal", gin.H{"email": "user@example.com"})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestRegisterPayPalUnconfiguredProvider(t *testing.T) {
	env := newTestEnv(t)
	env.paypal.configured = false

	recorder := performJSON(t, env.router, http.MethodPost, "/register-paypal", gin.H{
		"email": "user@example.com", "orderID": "order-1",
	})
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
}
