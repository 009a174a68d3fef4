package models

import "time"

// PromoCode is one document of the "promo_codes" collection, keyed by the
// normalized (trimmed, uppercased) code.
//
// Once Used is set, only the original UsedBy uid may redeem the code again
// (idempotent re-activation after a reinstall); any other uid is rejected.
type PromoCode struct {
	Code   string    `json:"code" firestore:"-"` // document ID
	Used   bool      `json:"used" firestore:"used"`
	UsedBy string    `json:"usedBy" firestore:"usedBy"`
	UsedAt time.Time `json:"usedAt" firestore:"usedAt,serverTimestamp"`
}
