package repository

import (
	"context"
	"sync"
	"time"

	"cardami/internal/models"
)

var _ ClaimStore = (*MemoryStore)(nil)

// MemoryStore keeps claims in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]*models.UserDocument
	now  func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]*models.UserDocument), now: time.Now}
}

func (s *MemoryStore) GetUserDocument(_ context.Context, userID string) (*models.UserDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[userID]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *doc
	cp.Cards = append([]models.ClaimRecord{}, doc.Cards...)
	return &cp, nil
}

func (s *MemoryStore) CreateUserDocument(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[userID]; !ok {
		s.docs[userID] = &models.UserDocument{UserID: userID, Cards: []models.ClaimRecord{}, UpdatedAt: s.now()}
	}
	return nil
}

func (s *MemoryStore) AppendClaim(_ context.Context, userID string, record models.ClaimRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[userID]
	if !ok {
		doc = &models.UserDocument{UserID: userID}
		s.docs[userID] = doc
	}
	if doc.HasClaim(record.CardID) {
		return models.ErrAlreadyClaimed
	}
	doc.Cards = append(doc.Cards, record)
	doc.UpdatedAt = s.now()
	return nil
}
