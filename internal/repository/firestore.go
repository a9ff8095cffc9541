package repository

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"cardami/internal/models"
)

var _ ClaimStore = (*FirestoreClaimStore)(nil)

// UsersCollection holds one document per user, keyed by uid.
const UsersCollection = "users"

// FirestoreClaimStore keeps claims in Cloud Firestore as users/{uid}
// documents with a "cards" array.
type FirestoreClaimStore struct {
	client *firestore.Client
	logger *zap.Logger
}

// NewFirestoreClaimStore creates a Firestore-backed ClaimStore.
func NewFirestoreClaimStore(client *firestore.Client, logger *zap.Logger) *FirestoreClaimStore {
	return &FirestoreClaimStore{client: client, logger: logger.Named("FirestoreClaimStore")}
}

func (s *FirestoreClaimStore) doc(userID string) *firestore.DocumentRef {
	return s.client.Collection(UsersCollection).Doc(userID)
}

func (s *FirestoreClaimStore) GetUserDocument(ctx context.Context, userID string) (*models.UserDocument, error) {
	snap, err := s.doc(userID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, models.ErrNotFound
	}
	if err != nil {
		s.logger.Error("Failed to get user document", zap.String("uid", userID), zap.Error(err))
		return nil, models.PersistenceError("get user document", err)
	}
	return decodeUserDocument(snap)
}

func (s *FirestoreClaimStore) CreateUserDocument(ctx context.Context, userID string) error {
	_, err := s.doc(userID).Create(ctx, map[string]interface{}{
		"cards":     []interface{}{},
		"updatedAt": firestore.ServerTimestamp,
	})
	if status.Code(err) == codes.AlreadyExists {
		return nil
	}
	if err != nil {
		s.logger.Error("Failed to create user document", zap.String("uid", userID), zap.Error(err))
		return models.PersistenceError("create user document", err)
	}
	s.logger.Info("User document created", zap.String("uid", userID))
	return nil
}

func (s *FirestoreClaimStore) AppendClaim(ctx context.Context, userID string, record models.ClaimRecord) error {
	ref := s.doc(userID)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound || (err == nil && !snap.Exists()) {
			return tx.Set(ref, map[string]interface{}{
				"cards":     []interface{}{record},
				"updatedAt": firestore.ServerTimestamp,
			})
		}
		if err != nil {
			return err
		}
		doc, err := decodeUserDocument(snap)
		if err != nil {
			return err
		}
		if doc.HasClaim(record.CardID) {
			return models.ErrAlreadyClaimed
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "cards", Value: firestore.ArrayUnion(record)},
			{Path: "updatedAt", Value: firestore.ServerTimestamp},
		})
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrAlreadyClaimed):
		s.logger.Warn("Duplicate claim rejected", zap.String("uid", userID), zap.String("cardId", record.CardID))
		return models.ErrAlreadyClaimed
	case errors.Is(err, models.ErrPersistence):
		return err
	default:
		s.logger.Error("Failed to append claim", zap.String("uid", userID), zap.String("cardId", record.CardID), zap.Error(err))
		return models.PersistenceError("append claim", err)
	}
}

func decodeUserDocument(snap *firestore.DocumentSnapshot) (*models.UserDocument, error) {
	var doc models.UserDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, models.PersistenceError("decode user document", err)
	}
	doc.UserID = snap.Ref.ID
	if doc.Cards == nil {
		doc.Cards = []models.ClaimRecord{}
	}
	return &doc, nil
}
