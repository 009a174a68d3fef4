package models

import "time"

// Payment method tags recorded on entitlement writes. These are audit
// strings, never parsed.
const (
	MethodMercadoPago         = "MercadoPago"
	MethodMercadoPagoBrick    = "MercadoPago_Brick"
	MethodMercadoPagoRestore  = "MercadoPago_Restore_Manual"
	MethodPayPal              = "PayPal"
	MethodPayPalSubscription  = "PayPal_Subscription"
	MethodPromoCode           = "Promo_Code"
	MethodOfficialAppPass     = "Official_App_Pass"
)

// Plan types accepted on activation. Anything else falls back to monthly.
const (
	PlanMonthly = "monthly"
	PlanYearly  = "yearly"
)

// License is one row of the local licenses table, keyed by account email.
// The email key is case-sensitive as received.
type License struct {
	Email       string     `json:"email"`
	IsPremium   bool       `json:"is_premium"`
	PaymentID   string     `json:"payment_id"`
	DateCreated time.Time  `json:"date_created"`

	// ExpirationDate is nil for legacy lifetime licenses, which never expire.
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`

	// ExpirationInvalid is set by the store when a stored expiration value
	// exists but could not be parsed. The reconciliation layer fails open on
	// this (premium with source "fallback") rather than locking out a payer.
	ExpirationInvalid bool `json:"-"`
}

// Expired reports whether the license has an expiration in the past.
// Lifetime licenses (nil expiration) never expire.
func (l *License) Expired(now time.Time) bool {
	if l.ExpirationDate == nil {
		return false
	}
	return now.After(*l.ExpirationDate)
}
