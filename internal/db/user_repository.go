package db

import (
	"context"
	"errors"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"audioeq-backend-go/internal/models"
)

const usersCollection = "usuarios"

// firestoreUserRepository implements the UserRepository interface using
// Firestore. The Firebase Auth UID is the document ID.
type firestoreUserRepository struct {
	client *firestore.Client
}

// NewFirestoreUserRepository creates a new instance of firestoreUserRepository.
func NewFirestoreUserRepository(client *firestore.Client) UserRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for UserRepository.")
	}
	return &firestoreUserRepository{client: client}
}

// GetByUID retrieves a profile document by uid.
func (r *firestoreUserRepository) GetByUID(ctx context.Context, uid string) (*models.UserProfile, error) {
	if uid == "" {
		return nil, errors.New("uid cannot be empty for GetByUID operation")
	}
	docSnap, err := r.client.Collection(usersCollection).Doc(uid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("user %q not found: %w", uid, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user %q: %w", uid, err)
	}

	var profile models.UserProfile
	if err := docSnap.DataTo(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode user data for %q: %w", uid, err)
	}
	profile.UID = docSnap.Ref.ID

	return &profile, nil
}

// SetEntitlement merge-writes the entitlement fields only. Writing a field
// map instead of the full struct keeps profile metadata (displayName,
// photoURL, lastLogin) untouched by payment events.
func (r *firestoreUserRepository) SetEntitlement(ctx context.Context, uid string, profile *models.UserProfile) error {
	if uid == "" {
		return errors.New("uid cannot be empty for SetEntitlement operation")
	}

	fields := map[string]interface{}{
		"isPremium":   profile.IsPremium,
		"lastPayment": firestore.ServerTimestamp,
		"paymentId":   profile.PaymentID,
		"method":      profile.Method,
		"email":       profile.Email,
	}
	if profile.ExpirationDate != nil {
		fields["expirationDate"] = *profile.ExpirationDate
	}
	if profile.PlanType != "" {
		fields["planType"] = profile.PlanType
	}
	if profile.PayerEmail != "" {
		fields["payer_email"] = profile.PayerEmail
	}

	if _, err := r.client.Collection(usersCollection).Doc(uid).Set(ctx, fields, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to set entitlement for user %q: %w", uid, err)
	}
	return nil
}

// SyncProfile merge-writes the profile metadata fields only, leaving
// entitlement fields (isPremium, expirationDate, ...) untouched.
func (r *firestoreUserRepository) SyncProfile(ctx context.Context, profile *models.UserProfile) error {
	if profile == nil || profile.UID == "" {
		return errors.New("profile uid cannot be empty for SyncProfile operation")
	}

	fields := map[string]interface{}{
		"uid":       profile.UID,
		"email":     profile.Email,
		"lastLogin": firestore.ServerTimestamp,
	}
	if profile.DisplayName != "" {
		fields["displayName"] = profile.DisplayName
	}
	if profile.PhotoURL != "" {
		fields["photoURL"] = profile.PhotoURL
	}

	if _, err := r.client.Collection(usersCollection).Doc(profile.UID).Set(ctx, fields, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to sync profile for user %q: %w", profile.UID, err)
	}
	return nil
}

// FindByEmail returns the first profile whose email field equals the given
// email, or ErrNotFound. Single-field equality query, limit 1.
func (r *firestoreUserRepository) FindByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	if email == "" {
		return nil, errors.New("email cannot be empty for FindByEmail operation")
	}

	iter := r.client.Collection(usersCollection).Where("email", "==", email).Limit(1).Documents(ctx)
	defer iter.Stop()

	docSnap, err := iter.Next()
	if err != nil {
		if errors.Is(err, iterator.Done) {
			return nil, fmt.Errorf("no user with email %q: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query users by email: %w", err)
	}

	var profile models.UserProfile
	if err := docSnap.DataTo(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode user data for email %q: %w", email, err)
	}
	profile.UID = docSnap.Ref.ID

	return &profile, nil
}
