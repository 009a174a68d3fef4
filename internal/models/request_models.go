package models

// Request DTOs for the HTTP surface. Optional fields are named explicitly so
// defaults are applied in one place instead of via ad hoc map lookups.

// CreatePaymentRequest starts a MercadoPago checkout preference.
type CreatePaymentRequest struct {
	Email    string  `json:"email" binding:"required,email"`
	UID      string  `json:"uid"`
	PlanType string  `json:"plan_type"` // monthly (default) or yearly
	Item     string  `json:"item"`      // defaults to the configured premium title
	Price    float64 `json:"price"`     // ignored; the configured price wins
}

// PayerIdentification is the document used by card/PSE payments.
type PayerIdentification struct {
	Type   string `json:"type" binding:"required"`
	Number string `json:"number" binding:"required"`
}

// Payer describes who is paying in a Brick card charge.
type Payer struct {
	Email          string              `json:"email" binding:"required,email"`
	Identification PayerIdentification `json:"identification" binding:"required"`
	EntityType     string              `json:"entity_type"` // PSE only
}

// ProcessPaymentRequest is the synchronous Brick card charge payload.
type ProcessPaymentRequest struct {
	TransactionAmount  float64                `json:"transaction_amount" binding:"required"`
	Token              string                 `json:"token" binding:"required"`
	Description        string                 `json:"description"`
	Installments       int                    `json:"installments"`
	PaymentMethodID    string                 `json:"payment_method_id"`
	IssuerID           string                 `json:"issuer_id"`
	Payer              Payer                  `json:"payer" binding:"required"`
	UID                string                 `json:"uid"`
	PlanType           string                 `json:"plan_type"`
	TransactionDetails map[string]interface{} `json:"transaction_details"` // PSE financial_institution passthrough
}

// WebhookEnvelope is the MercadoPago notification envelope. Only
// action/type/data.id are interpreted; everything else is provider noise.
type WebhookEnvelope struct {
	Action string `json:"action"`
	Type   string `json:"type"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

// RegisterPayPalRequest registers a client-asserted PayPal purchase, either a
// one-time order or a subscription.
type RegisterPayPalRequest struct {
	Email          string `json:"email"`
	UID            string `json:"uid"`
	OrderID        string `json:"orderID"`
	SubscriptionID string `json:"subscriptionID"`
	PlanType       string `json:"plan_type"`
}

// VerifyAppPassRequest redeems the configured promo code.
type VerifyAppPassRequest struct {
	Email string `json:"email" binding:"required,email"`
	UID   string `json:"uid" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// VerifyOfficialAppPassRequest checks a third-party pass token.
type VerifyOfficialAppPassRequest struct {
	Email string `json:"email" binding:"required,email"`
	UID   string `json:"uid" binding:"required"`
	Token string `json:"token" binding:"required"`
}

// SyncUserRequest upserts profile metadata on login.
type SyncUserRequest struct {
	UID         string `json:"uid" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
}

// RestorePurchaseRequest searches provider history and re-activates.
// Email is the account being entitled; PayerEmail/PaymentID narrow the
// search and may legitimately differ from the account email.
type RestorePurchaseRequest struct {
	Email      string `json:"email" binding:"required,email"`
	UID        string `json:"uid"`
	PayerEmail string `json:"payer_email"`
	PaymentID  string `json:"payment_id"`
}

// SupportRequest sends a support email.
type SupportRequest struct {
	Email   string `json:"email" binding:"required,email"`
	Subject string `json:"subject" binding:"required"`
	Message string `json:"message" binding:"required"`
}
