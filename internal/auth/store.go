package auth

import (
	"context"
	"sync"
)

// TokenStore describes persistence for registry tokens.
type TokenStore interface {
	Create(ctx context.Context, tok *Token) error
	FindByHash(ctx context.Context, keyHash string) (*Token, error)
	ListByUser(ctx context.Context, userID string) ([]*Token, error)
	// Delete removes the token if it belongs to userID. Returns ErrNotFound
	// when no such token exists for that user.
	Delete(ctx context.Context, userID, tokenID string) error
}

// MemoryTokenStore is a process-local TokenStore for tests.
type MemoryTokenStore struct {
	mu     sync.RWMutex
	tokens map[string]*Token // id -> token
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]*Token)}
}

var _ TokenStore = (*MemoryTokenStore)(nil)

func (s *MemoryTokenStore) Create(ctx context.Context, tok *Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tok
	s.tokens[tok.ID] = &cp
	return nil
}

func (s *MemoryTokenStore) FindByHash(ctx context.Context, keyHash string) (*Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tok := range s.tokens {
		if tok.KeyHash == keyHash {
			cp := *tok
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryTokenStore) ListByUser(ctx context.Context, userID string) ([]*Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Token
	for _, tok := range s.tokens {
		if tok.UserID == userID {
			cp := *tok
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryTokenStore) Delete(ctx context.Context, userID, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[tokenID]
	if !ok || tok.UserID != userID {
		return ErrNotFound
	}
	delete(s.tokens, tokenID)
	return nil
}
