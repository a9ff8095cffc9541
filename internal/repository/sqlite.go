package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"cardami/internal/models"
)

var _ ClaimStore = (*SQLiteClaimStore)(nil)

const sqliteSchema = `
PRAGMA busy_timeout = 5000;
PRAGMA foreign_keys = ON;
CREATE TABLE IF NOT EXISTS user_documents (
	user_id    TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS claims (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id     TEXT NOT NULL REFERENCES user_documents (user_id) ON DELETE CASCADE,
	card_id     TEXT NOT NULL,
	description TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	UNIQUE (user_id, card_id)
);
`

// SQLiteClaimStore keeps claims in a local SQLite file.
type SQLiteClaimStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteClaimStore opens (creating if needed) the database at dbPath.
func NewSQLiteClaimStore(dbPath string, logger *zap.Logger) (*SQLiteClaimStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// one writer keeps SQLITE_BUSY away from the claim transaction
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteClaimStore{db: db, logger: logger.Named("SQLiteClaimStore")}, nil
}

// Close closes the database.
func (s *SQLiteClaimStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteClaimStore) GetUserDocument(ctx context.Context, userID string) (*models.UserDocument, error) {
	var updatedAt int64
	err := s.db.QueryRowContext(ctx, `SELECT updated_at FROM user_documents WHERE user_id = ?`, userID).Scan(&updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		s.logger.Error("Failed to get user document", zap.String("uid", userID), zap.Error(err))
		return nil, models.PersistenceError("get user document", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT card_id, description FROM claims WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, models.PersistenceError("list claims", err)
	}
	defer rows.Close()

	doc := &models.UserDocument{UserID: userID, UpdatedAt: time.UnixMilli(updatedAt), Cards: []models.ClaimRecord{}}
	for rows.Next() {
		var rec models.ClaimRecord
		if err := rows.Scan(&rec.CardID, &rec.Description); err != nil {
			return nil, models.PersistenceError("scan claim", err)
		}
		doc.Cards = append(doc.Cards, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, models.PersistenceError("list claims", err)
	}
	return doc, nil
}

func (s *SQLiteClaimStore) CreateUserDocument(ctx context.Context, userID string) error {
	now := time.Now().UnixMilli()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_documents (user_id, created_at, updated_at) VALUES (?, ?, ?) ON CONFLICT (user_id) DO NOTHING`,
		userID, now, now)
	if err != nil {
		s.logger.Error("Failed to create user document", zap.String("uid", userID), zap.Error(err))
		return models.PersistenceError("create user document", err)
	}
	return nil
}

func (s *SQLiteClaimStore) AppendClaim(ctx context.Context, userID string, record models.ClaimRecord) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.PersistenceError("begin claim", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UnixMilli()
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO user_documents (user_id, created_at, updated_at) VALUES (?, ?, ?) ON CONFLICT (user_id) DO NOTHING`,
		userID, now, now); err != nil {
		return models.PersistenceError("append claim", err)
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO claims (user_id, card_id, description, created_at) VALUES (?, ?, ?, ?)`,
		userID, record.CardID, record.Description, now); err != nil {
		if isUniqueViolation(err) {
			s.logger.Warn("Duplicate claim rejected", zap.String("uid", userID), zap.String("cardId", record.CardID))
			return models.ErrAlreadyClaimed
		}
		return models.PersistenceError("append claim", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE user_documents SET updated_at = ? WHERE user_id = ?`, now, userID); err != nil {
		return models.PersistenceError("append claim", err)
	}
	if err = tx.Commit(); err != nil {
		return models.PersistenceError("commit claim", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
