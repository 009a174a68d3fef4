package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"audioeq-backend-go/internal/models"
)

// timestampFormats are the textual layouts tolerated when reading stored
// timestamps back. Rows written by older revisions carry "2006-01-02
// 15:04:05" style values (with or without fractional seconds); new rows are
// written as RFC3339 UTC.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// sqliteLicenseRepository implements LicenseRepository over the local
// licenses table.
type sqliteLicenseRepository struct {
	handle *sql.DB
}

// NewSQLiteLicenseRepository creates a LicenseRepository backed by the given
// sqlite handle.
func NewSQLiteLicenseRepository(handle *sql.DB) LicenseRepository {
	if handle == nil {
		panic("sqlite handle is not initialized for LicenseRepository")
	}
	return &sqliteLicenseRepository{handle: handle}
}

// Upsert inserts or overwrites the entitlement fields for license.Email.
// date_created is only set by the insert branch; repeated activations keep
// the original value.
func (r *sqliteLicenseRepository) Upsert(ctx context.Context, license *models.License) error {
	if license == nil || license.Email == "" {
		return errors.New("license email cannot be empty for Upsert operation")
	}

	var expiration interface{}
	if license.ExpirationDate != nil {
		expiration = license.ExpirationDate.UTC().Format(time.RFC3339)
	}

	premium := 0
	if license.IsPremium {
		premium = 1
	}

	_, err := r.handle.ExecContext(ctx, `
		INSERT INTO licenses (email, is_premium, payment_id, expiration_date)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			is_premium=excluded.is_premium,
			payment_id=excluded.payment_id,
			expiration_date=excluded.expiration_date
	`, license.Email, premium, license.PaymentID, expiration)
	if err != nil {
		return fmt.Errorf("failed to upsert license for %q: %w", license.Email, err)
	}
	return nil
}

// GetByEmail returns the license row for the email, or ErrNotFound.
func (r *sqliteLicenseRepository) GetByEmail(ctx context.Context, email string) (*models.License, error) {
	if email == "" {
		return nil, errors.New("email cannot be empty for GetByEmail operation")
	}

	row := r.handle.QueryRowContext(ctx, `
		SELECT email, is_premium, payment_id, date_created, expiration_date
		FROM licenses WHERE email = ?
	`, email)

	var (
		license    models.License
		premium    int
		paymentID  sql.NullString
		created    sql.NullString
		expiration sql.NullString
	)
	if err := row.Scan(&license.Email, &premium, &paymentID, &created, &expiration); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("license for %q not found: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get license for %q: %w", email, err)
	}

	license.IsPremium = premium != 0
	license.PaymentID = paymentID.String

	if created.Valid {
		if ts, ok := parseStoredTimestamp(created.String); ok {
			license.DateCreated = ts
		}
	}

	if expiration.Valid && expiration.String != "" {
		if ts, ok := parseStoredTimestamp(expiration.String); ok {
			license.ExpirationDate = &ts
		} else {
			// Value present but unreadable. Surfaced to the reconciliation
			// layer, which fails open rather than revoking a paid license.
			license.ExpirationInvalid = true
		}
	}

	return &license, nil
}

func parseStoredTimestamp(value string) (time.Time, bool) {
	for _, layout := range timestampFormats {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
