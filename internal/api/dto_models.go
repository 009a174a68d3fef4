package api

import "time"

// ErrorResponse is a generic structure for returning errors via API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// CreatePaymentResponse carries the hosted-checkout handle back to the
// client. PaymentURL is optional when the client renders a Brick instead of
// redirecting.
type CreatePaymentResponse struct {
	PaymentURL   string `json:"payment_url,omitempty"`
	PreferenceID string `json:"preference_id"`
}

// WebhookAck acknowledges a provider notification.
type WebhookAck struct {
	Status string `json:"status"`
}

// RegisterPayPalResponse reports the outcome of a PayPal registration.
type RegisterPayPalResponse struct {
	Status     string     `json:"status"`
	Email      string     `json:"email"`
	Expiration *time.Time `json:"expiration,omitempty"`
}

// StatusMessageResponse is the shape of promo/pass verification results.
type StatusMessageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// RestorePurchaseResponse reports a restore search outcome. "not_found" is a
// negative result, not an error.
type RestorePurchaseResponse struct {
	Status     string     `json:"status"`
	Message    string     `json:"message"`
	PaymentID  string     `json:"payment_id,omitempty"`
	Expiration *time.Time `json:"expiration,omitempty"`
}

// SyncUserResponse acknowledges a profile sync.
type SyncUserResponse struct {
	Status string `json:"status"`
}

// SupportResponse returns the assigned ticket id.
type SupportResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}
