package db

import (
	"context"
	"errors"

	"audioeq-backend-go/internal/models"
)

// ErrNotFound is returned by all repositories when a row or document does
// not exist.
var ErrNotFound = errors.New("record not found")

// LicenseRepository defines the local (fast-lookup) license store, keyed by
// account email. Authoritative for email-scoped entitlement checks.
type LicenseRepository interface {
	// Upsert writes the entitlement fields for the email. On conflict the
	// premium flag, payment id and expiration are overwritten; date_created
	// is set once at first insert and never updated.
	Upsert(ctx context.Context, license *models.License) error
	// GetByEmail returns ErrNotFound when no row exists.
	GetByEmail(ctx context.Context, email string) (*models.License, error)
}

// UserRepository defines the remote profile/entitlement mirror, keyed by uid.
type UserRepository interface {
	GetByUID(ctx context.Context, uid string) (*models.UserProfile, error)
	// SetEntitlement merge-writes only the entitlement fields of the profile
	// document; profile metadata (displayName, photoURL, lastLogin) is left
	// untouched.
	SetEntitlement(ctx context.Context, uid string, profile *models.UserProfile) error
	// SyncProfile merge-writes only the profile metadata fields; entitlement
	// fields are left untouched.
	SyncProfile(ctx context.Context, profile *models.UserProfile) error
	// FindByEmail returns the first profile whose email field matches, or
	// ErrNotFound. Best-effort fallback for activations without a uid.
	FindByEmail(ctx context.Context, email string) (*models.UserProfile, error)
}

// PromoRepository defines promo-code usage tracking, keyed by normalized code.
type PromoRepository interface {
	Get(ctx context.Context, code string) (*models.PromoCode, error)
	MarkUsed(ctx context.Context, code, uid string) error
}
