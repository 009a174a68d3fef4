package db

import (
	"context"
	"errors"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"audioeq-backend-go/internal/models"
)

const promoCodesCollection = "promo_codes"

// firestorePromoRepository implements the PromoRepository interface using
// Firestore. The normalized code is the document ID.
type firestorePromoRepository struct {
	client *firestore.Client
}

// NewFirestorePromoRepository creates a new instance of firestorePromoRepository.
func NewFirestorePromoRepository(client *firestore.Client) PromoRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for PromoRepository.")
	}
	return &firestorePromoRepository{client: client}
}

// Get retrieves the usage record for a normalized code, or ErrNotFound when
// the code has never been redeemed.
func (r *firestorePromoRepository) Get(ctx context.Context, code string) (*models.PromoCode, error) {
	if code == "" {
		return nil, errors.New("code cannot be empty for Get operation")
	}
	docSnap, err := r.client.Collection(promoCodesCollection).Doc(code).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("promo code %q has no usage record: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get promo code %q: %w", code, err)
	}

	var promo models.PromoCode
	if err := docSnap.DataTo(&promo); err != nil {
		return nil, fmt.Errorf("failed to decode promo code %q: %w", code, err)
	}
	promo.Code = docSnap.Ref.ID

	return &promo, nil
}

// MarkUsed records the first redeemer of a code. Overwriting with the same
// uid is harmless (idempotent re-activation path).
func (r *firestorePromoRepository) MarkUsed(ctx context.Context, code, uid string) error {
	if code == "" || uid == "" {
		return errors.New("code and uid cannot be empty for MarkUsed operation")
	}

	fields := map[string]interface{}{
		"used":   true,
		"usedBy": uid,
		"usedAt": firestore.ServerTimestamp,
	}
	if _, err := r.client.Collection(promoCodesCollection).Doc(code).Set(ctx, fields, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to mark promo code %q used: %w", code, err)
	}
	return nil
}
