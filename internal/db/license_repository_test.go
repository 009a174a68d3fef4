package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audioeq-backend-go/internal/models"
)

func newTestRepository(t *testing.T) LicenseRepository {
	t.Helper()
	handle, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { handle.Close() })
	return NewSQLiteLicenseRepository(handle)
}

func TestGetByEmailMissingRow(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertAndGetRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	expiration := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	err := repo.Upsert(context.Background(), &models.License{
		Email:          "user@example.com",
		IsPremium:      true,
		PaymentID:      "12345",
		ExpirationDate: &expiration,
	})
	require.NoError(t, err)

	license, err := repo.GetByEmail(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", license.Email)
	assert.True(t, license.IsPremium)
	assert.Equal(t, "12345", license.PaymentID)
	require.NotNil(t, license.ExpirationDate)
	assert.True(t, expiration.Equal(*license.ExpirationDate))
	assert.False(t, license.ExpirationInvalid)
	assert.False(t, license.DateCreated.IsZero())
}

func TestUpsertOverwritesWithoutDuplicating(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	first := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	second := time.Date(2027, 4, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(ctx, &models.License{
		Email: "user@example.com", IsPremium: true, PaymentID: "old", ExpirationDate: &first,
	}))
	created, err := repo.GetByEmail(ctx, "user@example.com")
	require.NoError(t, err)

	require.NoError(t, repo.Upsert(ctx, &models.License{
		Email: "user@example.com", IsPremium: true, PaymentID: "new", ExpirationDate: &second,
	}))

	license, err := repo.GetByEmail(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "new", license.PaymentID)
	assert.True(t, second.Equal(*license.ExpirationDate))
	// Re-activation keeps the original creation stamp.
	assert.True(t, created.DateCreated.Equal(license.DateCreated))
}

func TestUpsertNilExpirationStoresLifetime(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &models.License{
		Email: "legacy@example.com", IsPremium: true,
	}))

	license, err := repo.GetByEmail(ctx, "legacy@example.com")
	require.NoError(t, err)
	assert.True(t, license.IsPremium)
	assert.Nil(t, license.ExpirationDate)
	assert.False(t, license.ExpirationInvalid)
}

func TestUpsertRejectsEmptyEmail(t *testing.T) {
	repo := newTestRepository(t)

	err := repo.Upsert(context.Background(), &models.License{IsPremium: true})
	assert.Error(t, err)
}

func TestGetByEmailLegacySpaceSeparatedTimestamp(t *testing.T) {
	handle, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { handle.Close() })

	// Rows written by older revisions carry space-separated timestamps.
	_, err = handle.Exec(`
		INSERT INTO licenses (email, is_premium, payment_id, expiration_date)
		VALUES ('old@example.com', 1, '42', '2027-01-15 08:30:00')
	`)
	require.NoError(t, err)

	repo := NewSQLiteLicenseRepository(handle)
	license, err := repo.GetByEmail(context.Background(), "old@example.com")
	require.NoError(t, err)
	require.NotNil(t, license.ExpirationDate)
	assert.Equal(t, 2027, license.ExpirationDate.Year())
	assert.False(t, license.ExpirationInvalid)
}

func TestGetByEmailUnparseableExpirationFlagged(t *testing.T) {
	handle, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { handle.Close() })

	_, err = handle.Exec(`
		INSERT INTO licenses (email, is_premium, payment_id, expiration_date)
		VALUES ('broken@example.com', 1, '42', 'not-a-date')
	`)
	require.NoError(t, err)

	repo := NewSQLiteLicenseRepository(handle)
	license, err := repo.GetByEmail(context.Background(), "broken@example.com")
	require.NoError(t, err)
	assert.True(t, license.IsPremium)
	assert.Nil(t, license.ExpirationDate)
	assert.True(t, license.ExpirationInvalid)
}
