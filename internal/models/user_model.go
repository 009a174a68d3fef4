package models

import "time"

// UserProfile is one document of the "usuarios" collection, keyed by the
// Firebase Auth UID. It mirrors the entitlement fields of the local license
// table and additionally carries profile metadata maintained by /sync-user.
//
// Entitlement writes and profile writes go through different merge sets so
// that neither clobbers the other's fields.
type UserProfile struct {
	UID            string     `json:"uid" firestore:"-"` // document ID
	Email          string     `json:"email" firestore:"email"`
	DisplayName    string     `json:"displayName,omitempty" firestore:"displayName,omitempty"`
	PhotoURL       string     `json:"photoURL,omitempty" firestore:"photoURL,omitempty"`
	LastLogin      time.Time  `json:"lastLogin" firestore:"lastLogin,serverTimestamp"`

	IsPremium      bool       `json:"isPremium" firestore:"isPremium"`
	ExpirationDate *time.Time `json:"expirationDate,omitempty" firestore:"expirationDate,omitempty"`
	PlanType       string     `json:"planType,omitempty" firestore:"planType,omitempty"`
	PaymentID      string     `json:"paymentId,omitempty" firestore:"paymentId,omitempty"`
	Method         string     `json:"method,omitempty" firestore:"method,omitempty"`
	PayerEmail     string     `json:"payerEmail,omitempty" firestore:"payer_email,omitempty"`
	LastPayment    time.Time  `json:"lastPayment" firestore:"lastPayment,serverTimestamp"`
}

// PremiumActive reports whether the profile entitles the user right now,
// comparing timezone-aware instants. A premium profile without an expiration
// is treated as active.
func (u *UserProfile) PremiumActive(now time.Time) bool {
	if !u.IsPremium {
		return false
	}
	if u.ExpirationDate == nil {
		return true
	}
	return !now.After(*u.ExpirationDate)
}
