package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"audioeq-backend-go/internal/db"
	"audioeq-backend-go/internal/models"
	"audioeq-backend-go/internal/payments"
)

// Grant lengths for plan types without a provider-supplied billing horizon.
const (
	monthlyGrant = 30 * 24 * time.Hour
	yearlyGrant  = 365 * 24 * time.Hour
)

// ErrEmailRequired is returned when an activation or check has no account key.
var ErrEmailRequired = errors.New("account email is required")

// licenseService implements LicenseService over the local license table and
// the remote profile mirror. The local store is the write path of record for
// email-scoped checks; the remote write is best-effort and never rolls back
// a successful local write.
type licenseService struct {
	licenses    db.LicenseRepository
	users       db.UserRepository // nil when Firebase is not configured
	mercadoPago MercadoPagoGateway
	logger      *zap.Logger
	now         func() time.Time
}

// NewLicenseService creates the reconciliation service. users may be nil, in
// which case remote reads/writes are skipped and the local store alone
// answers.
func NewLicenseService(
	licenses db.LicenseRepository,
	users db.UserRepository,
	mercadoPago MercadoPagoGateway,
	logger *zap.Logger,
) LicenseService {
	return &licenseService{
		licenses:    licenses,
		users:       users,
		mercadoPago: mercadoPago,
		logger:      logger,
		now:         time.Now,
	}
}

// Activate upserts the entitlement for input.Email in the local store and
// mirrors it to the remote profile. Repeated activations for the same email
// overwrite payment id and expiration; they never duplicate rows.
func (s *licenseService) Activate(ctx context.Context, input ActivationInput) (*models.License, error) {
	if input.Email == "" {
		return nil, ErrEmailRequired
	}

	expiration := s.expirationFor(input)
	license := &models.License{
		Email:          input.Email,
		IsPremium:      true,
		PaymentID:      input.PaymentID,
		ExpirationDate: &expiration,
	}

	if err := s.licenses.Upsert(ctx, license); err != nil {
		return nil, fmt.Errorf("failed to write local license for %q: %w", input.Email, err)
	}

	s.logger.Info("License activated",
		zap.String("email", input.Email),
		zap.String("method", input.Method),
		zap.String("paymentId", input.PaymentID),
		zap.Time("expiration", expiration))

	// Remote mirror write is independent of the local write: a failure here
	// is logged and the activation still counts (read-path reconciliation
	// repairs the gap later).
	s.mirrorActivation(ctx, input, &expiration)

	return license, nil
}

func (s *licenseService) expirationFor(input ActivationInput) time.Time {
	if input.NextBilling != nil {
		return *input.NextBilling
	}
	if strings.EqualFold(input.PlanType, models.PlanYearly) {
		return s.now().Add(yearlyGrant)
	}
	return s.now().Add(monthlyGrant)
}

func (s *licenseService) mirrorActivation(ctx context.Context, input ActivationInput, expiration *time.Time) {
	if s.users == nil {
		s.logger.Warn("Remote store not configured; entitlement written locally only",
			zap.String("email", input.Email))
		return
	}

	uid := input.UID
	if uid == "" {
		// Best-effort: the webhook sometimes arrives without a uid in its
		// metadata; try to locate the profile by email instead.
		profile, err := s.users.FindByEmail(ctx, input.Email)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				s.logger.Info("No remote profile matches email; local store remains authoritative",
					zap.String("email", input.Email))
			} else {
				s.logger.Error("Remote profile lookup by email failed",
					zap.String("email", input.Email), zap.Error(err))
			}
			return
		}
		uid = profile.UID
	}

	planType := ""
	if strings.EqualFold(input.PlanType, models.PlanYearly) {
		planType = models.PlanYearly
	} else if strings.EqualFold(input.PlanType, models.PlanMonthly) {
		planType = models.PlanMonthly
	}

	entitlement := &models.UserProfile{
		Email:          input.Email,
		IsPremium:      true,
		ExpirationDate: expiration,
		PlanType:       planType,
		PaymentID:      input.PaymentID,
		Method:         input.Method,
		PayerEmail:     input.PayerEmail,
	}
	if err := s.users.SetEntitlement(ctx, uid, entitlement); err != nil {
		s.logger.Error("Remote entitlement write failed; local license stands",
			zap.String("uid", uid), zap.String("email", input.Email), zap.Error(err))
		return
	}

	s.logger.Info("Remote entitlement updated", zap.String("uid", uid), zap.String("email", input.Email))
}

// CheckEntitlement resolves the entitlement for an account. Resolution
// order: local row first; only when the local store yields no usable
// positive answer does the remote mirror get consulted (uid required). A
// remote hit is written through to the local store.
func (s *licenseService) CheckEntitlement(ctx context.Context, email, uid string) (*EntitlementResult, error) {
	if email == "" {
		return nil, ErrEmailRequired
	}
	now := s.now()

	license, err := s.licenses.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if result := s.resolveLocal(license, now); result != nil {
			return result, nil
		}
		// Row exists but carries no positive entitlement; the remote mirror
		// may still know better (e.g. activation landed remote-only).
	case errors.Is(err, db.ErrNotFound):
		// fall through to remote
	default:
		// A broken local store must not take entitlement checks down with
		// it; log and let the remote mirror answer.
		s.logger.Error("Local license lookup failed", zap.String("email", email), zap.Error(err))
	}

	return s.resolveRemote(ctx, email, uid, now), nil
}

// resolveLocal returns a terminal result for the local row, or nil when the
// row gives no usable positive answer and the remote store should be asked.
func (s *licenseService) resolveLocal(license *models.License, now time.Time) *EntitlementResult {
	if !license.IsPremium && !license.ExpirationInvalid {
		return nil
	}

	if license.ExpirationInvalid {
		// Deliberate fail-open: an unreadable expiration must not lock out a
		// paying user. The fallback source tag keeps the condition visible.
		s.logger.Warn("Stored expiration unparseable; granting premium with fallback source",
			zap.String("email", license.Email))
		return &EntitlementResult{Premium: true, Source: "fallback"}
	}

	if license.ExpirationDate == nil {
		// Legacy lifetime license: grandfathered, never expires.
		return &EntitlementResult{Premium: true, Source: "legacy"}
	}

	if license.Expired(now) {
		return &EntitlementResult{Premium: false, Status: "expired", Expiration: license.ExpirationDate}
	}
	return &EntitlementResult{Premium: true, Source: "local", Expiration: license.ExpirationDate}
}

func (s *licenseService) resolveRemote(ctx context.Context, email, uid string, now time.Time) *EntitlementResult {
	if uid == "" || s.users == nil {
		return &EntitlementResult{Premium: false}
	}

	profile, err := s.users.GetByUID(ctx, uid)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			s.logger.Error("Remote profile lookup failed", zap.String("uid", uid), zap.Error(err))
		}
		return &EntitlementResult{Premium: false}
	}

	if !profile.IsPremium {
		return &EntitlementResult{Premium: false}
	}

	if !profile.PremiumActive(now) {
		return &EntitlementResult{Premium: false, Status: "expired_remote", Expiration: profile.ExpirationDate}
	}

	// Write-through: sync the remote positive back into the local store so
	// the next email-scoped check answers without a network round trip.
	writeThrough := &models.License{
		Email:          email,
		IsPremium:      true,
		PaymentID:      profile.PaymentID,
		ExpirationDate: profile.ExpirationDate,
	}
	if err := s.licenses.Upsert(ctx, writeThrough); err != nil {
		s.logger.Error("Write-through to local store failed", zap.String("email", email), zap.Error(err))
	}

	return &EntitlementResult{Premium: true, Source: "remote", Expiration: profile.ExpirationDate}
}

// RestorePurchase searches MercadoPago history for an approved payment
// matching the given payment id (preferred) or payer email (most recent
// first), then re-activates the ACCOUNT email. The payer may legitimately
// differ from the account; the payer is recorded for audit only.
func (s *licenseService) RestorePurchase(ctx context.Context, accountEmail, payerEmail, paymentID, uid string) (*RestoreResult, error) {
	if accountEmail == "" {
		return nil, ErrEmailRequired
	}
	if s.mercadoPago == nil || !s.mercadoPago.Configured() {
		return nil, payments.ErrNotConfigured
	}

	var found *payments.Payment

	if paymentID != "" {
		payment, err := s.mercadoPago.GetPayment(ctx, paymentID)
		if err != nil {
			// An unknown id is a soft miss; the email search below may
			// still find the purchase.
			s.logger.Warn("Payment lookup by id failed during restore",
				zap.String("paymentId", paymentID), zap.Error(err))
		} else if payment.Approved() {
			found = payment
		}
	}

	if found == nil {
		searchEmail := payerEmail
		if searchEmail == "" {
			searchEmail = accountEmail
		}
		results, err := s.mercadoPago.SearchPayments(ctx, searchEmail)
		if err != nil {
			return nil, fmt.Errorf("payment search for %q failed: %w", searchEmail, err)
		}
		for i := range results {
			if results[i].Approved() {
				found = &results[i]
				break
			}
		}
	}

	if found == nil {
		return &RestoreResult{Found: false}, nil
	}

	s.logger.Info("Approved payment found for restore",
		zap.String("accountEmail", accountEmail),
		zap.String("paymentId", found.PaymentID()),
		zap.String("payerEmail", found.Payer.Email))

	license, err := s.Activate(ctx, ActivationInput{
		Email:      accountEmail,
		UID:        uid,
		PaymentID:  found.PaymentID(),
		Method:     models.MethodMercadoPagoRestore,
		PayerEmail: found.Payer.Email,
	})
	if err != nil {
		return nil, err
	}

	return &RestoreResult{
		Found:      true,
		PaymentID:  found.PaymentID(),
		PayerEmail: found.Payer.Email,
		Expiration: license.ExpirationDate,
	}, nil
}
