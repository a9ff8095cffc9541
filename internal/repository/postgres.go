package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"cardami/internal/models"
)

// Compile-time check
var _ ClaimStore = (*PgClaimStore)(nil)

const (
	getUserDocumentQuery    = `SELECT user_id, updated_at FROM user_documents WHERE user_id = $1`
	listClaimsQuery         = `SELECT card_id, description FROM claims WHERE user_id = $1 ORDER BY id`
	createUserDocumentQuery = `INSERT INTO user_documents (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`
	insertClaimQuery        = `INSERT INTO claims (user_id, card_id, description) VALUES ($1, $2, $3)`
	touchUserDocumentQuery  = `UPDATE user_documents SET updated_at = now() WHERE user_id = $1`

	uniqueViolation = "23505"
)

type userDocumentRow struct {
	UserID    string    `db:"user_id"`
	UpdatedAt time.Time `db:"updated_at"`
}

type claimRow struct {
	CardID      string `db:"card_id"`
	Description string `db:"description"`
}

// PgClaimStore keeps claims in PostgreSQL.
type PgClaimStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPgClaimStore creates a postgres-backed ClaimStore. The schema must be
// migrated with Migrator first.
func NewPgClaimStore(pool *pgxpool.Pool, logger *zap.Logger) *PgClaimStore {
	return &PgClaimStore{pool: pool, logger: logger.Named("PgClaimStore")}
}

func (r *PgClaimStore) GetUserDocument(ctx context.Context, userID string) (*models.UserDocument, error) {
	var row userDocumentRow
	if err := pgxscan.Get(ctx, r.pool, &row, getUserDocumentQuery, userID); err != nil {
		if pgxscan.NotFound(err) {
			r.logger.Debug("User document not found", zap.String("uid", userID))
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get user document", zap.String("uid", userID), zap.Error(err))
		return nil, models.PersistenceError("get user document", err)
	}

	var rows []claimRow
	if err := pgxscan.Select(ctx, r.pool, &rows, listClaimsQuery, userID); err != nil {
		r.logger.Error("Failed to list claims", zap.String("uid", userID), zap.Error(err))
		return nil, models.PersistenceError("list claims", err)
	}

	doc := &models.UserDocument{UserID: row.UserID, UpdatedAt: row.UpdatedAt, Cards: make([]models.ClaimRecord, 0, len(rows))}
	for _, c := range rows {
		doc.Cards = append(doc.Cards, models.ClaimRecord{CardID: c.CardID, Description: c.Description})
	}
	return doc, nil
}

func (r *PgClaimStore) CreateUserDocument(ctx context.Context, userID string) error {
	if _, err := r.pool.Exec(ctx, createUserDocumentQuery, userID); err != nil {
		r.logger.Error("Failed to create user document", zap.String("uid", userID), zap.Error(err))
		return models.PersistenceError("create user document", err)
	}
	return nil
}

func (r *PgClaimStore) AppendClaim(ctx context.Context, userID string, record models.ClaimRecord) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, createUserDocumentQuery, userID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, insertClaimQuery, userID, record.CardID, record.Description); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, touchUserDocumentQuery, userID)
		return err
	})
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		r.logger.Warn("Duplicate claim rejected", zap.String("uid", userID), zap.String("cardId", record.CardID))
		return models.ErrAlreadyClaimed
	}
	r.logger.Error("Failed to append claim", zap.String("uid", userID), zap.String("cardId", record.CardID), zap.Error(err))
	return models.PersistenceError("append claim", fmt.Errorf("postgres: %w", err))
}
