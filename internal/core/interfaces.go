package core

import (
	"context"
	"time"

	"audioeq-backend-go/internal/models"
	"audioeq-backend-go/internal/payments"
)

// ActivationInput carries everything one verified payment/promo/pass event
// contributes to an entitlement write.
type ActivationInput struct {
	// Email is the ACCOUNT being entitled. It may differ from the email that
	// actually paid (restore flow); the payer goes into PayerEmail for audit.
	Email      string
	UID        string
	PlanType   string // monthly (default) or yearly
	PaymentID  string
	Method     string
	PayerEmail string

	// NextBilling, when set, wins over the plan-length rule (subscription
	// events carry the provider's own next billing time).
	NextBilling *time.Time
}

// EntitlementResult is the reconciled answer for one account.
type EntitlementResult struct {
	Premium    bool       `json:"premium"`
	Source     string     `json:"source,omitempty"` // local, legacy, remote, fallback
	Status     string     `json:"status,omitempty"` // expired, expired_remote
	Expiration *time.Time `json:"expiration,omitempty"`
}

// RestoreResult is the outcome of a restore-purchase search. Found=false is
// a negative result, not an error.
type RestoreResult struct {
	Found      bool
	PaymentID  string
	PayerEmail string
	Expiration *time.Time
}

// LicenseService is the reconciliation core: it merges entitlement signals
// from the local store, the remote mirror and the providers into one answer,
// and writes activations to both stores.
type LicenseService interface {
	Activate(ctx context.Context, input ActivationInput) (*models.License, error)
	CheckEntitlement(ctx context.Context, email, uid string) (*EntitlementResult, error)
	RestorePurchase(ctx context.Context, accountEmail, payerEmail, paymentID, uid string) (*RestoreResult, error)
}

// PromoService redeems the configured promo code and third-party passes.
type PromoService interface {
	Redeem(ctx context.Context, code, uid, email string) error
	VerifyOfficialPass(ctx context.Context, token, uid, email string) error
}

// SupportService delivers support tickets and returns the ticket id.
type SupportService interface {
	SendTicket(ctx context.Context, email, subject, message string) (string, error)
}

// MercadoPagoGateway is the slice of the MercadoPago adapter the services
// depend on; tests substitute a double.
type MercadoPagoGateway interface {
	Configured() bool
	CreatePreference(ctx context.Context, req *payments.PreferenceRequest) (*payments.Preference, error)
	CreatePayment(ctx context.Context, req map[string]interface{}) (*payments.Payment, error)
	GetPayment(ctx context.Context, id string) (*payments.Payment, error)
	SearchPayments(ctx context.Context, payerEmail string) ([]payments.Payment, error)
}

// PayPalGateway is the slice of the PayPal adapter the services depend on.
type PayPalGateway interface {
	Configured() bool
	VerifyOrder(ctx context.Context, orderID string) (bool, *payments.Order, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*payments.Subscription, error)
}

// PassValidator checks third-party app pass tokens.
type PassValidator interface {
	Configured() bool
	Validate(ctx context.Context, token string) error
}

// Mailer sends outbound mail.
type Mailer interface {
	Send(recipient, sender, subject, body string) error
}
