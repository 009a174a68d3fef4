package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"audioeq-backend-go/internal/db"
	"audioeq-backend-go/internal/models"
	"audioeq-backend-go/internal/payments"
)

var (
	// ErrInvalidCode is returned when the submitted code does not match the
	// configured secret.
	ErrInvalidCode = errors.New("invalid promo code")
	// ErrAlreadyUsed is returned when the code was first redeemed by a
	// different uid. The original redeemer may redeem again (reinstall).
	ErrAlreadyUsed = errors.New("promo code already redeemed by another user")
	// ErrInvalidToken is returned when the external endpoint rejects a pass
	// token.
	ErrInvalidToken = errors.New("invalid app pass token")
	// ErrPromoUnavailable is returned when single-use tracking cannot be
	// enforced (remote store not configured).
	ErrPromoUnavailable = errors.New("promo redemption is unavailable")
)

// promoService implements PromoService.
type promoService struct {
	secretCode string // normalized at construction
	promos     db.PromoRepository // nil when Firebase is not configured
	validator  PassValidator
	licenses   LicenseService
	logger     *zap.Logger
}

// NewPromoService creates the promo/pass verifier. The secret is normalized
// once here; submitted codes are normalized per call.
func NewPromoService(
	secretCode string,
	promos db.PromoRepository,
	validator PassValidator,
	licenses LicenseService,
	logger *zap.Logger,
) PromoService {
	return &promoService{
		secretCode: normalizeCode(secretCode),
		promos:     promos,
		validator:  validator,
		licenses:   licenses,
		logger:     logger,
	}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Redeem validates the code against the configured secret, enforces
// single-use-per-code (idempotent for the original redeemer), and activates
// a fixed 30-day grant.
func (s *promoService) Redeem(ctx context.Context, code, uid, email string) error {
	normalized := normalizeCode(code)
	if s.secretCode == "" || normalized != s.secretCode {
		return ErrInvalidCode
	}

	if s.promos == nil {
		// Without the usage record we cannot enforce single-use; refusing is
		// safer than handing out unlimited grants.
		return ErrPromoUnavailable
	}

	promo, err := s.promos.Get(ctx, normalized)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("failed to look up promo usage: %w", err)
	}
	if promo != nil && promo.Used && promo.UsedBy != uid {
		return ErrAlreadyUsed
	}

	if err := s.promos.MarkUsed(ctx, normalized, uid); err != nil {
		return fmt.Errorf("failed to mark promo code used: %w", err)
	}

	s.logger.Info("Promo code redeemed", zap.String("uid", uid), zap.String("email", email))

	_, err = s.licenses.Activate(ctx, ActivationInput{
		Email:     email,
		UID:       uid,
		PlanType:  models.PlanMonthly,
		PaymentID: "PROMO_" + normalized,
		Method:    models.MethodPromoCode,
	})
	return err
}

// VerifyOfficialPass delegates token validation to the external endpoint and
// activates a fixed 30-day grant on success.
func (s *promoService) VerifyOfficialPass(ctx context.Context, token, uid, email string) error {
	if err := s.validator.Validate(ctx, token); err != nil {
		if errors.Is(err, payments.ErrPassRejected) {
			return ErrInvalidToken
		}
		return err
	}

	s.logger.Info("Official app pass accepted", zap.String("uid", uid), zap.String("email", email))

	_, err := s.licenses.Activate(ctx, ActivationInput{
		Email:     email,
		UID:       uid,
		PlanType:  models.PlanMonthly,
		PaymentID: "OFFICIAL_APP_PASS_" + uid,
		Method:    models.MethodOfficialAppPass,
	})
	return err
}
