package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"cratevault.org/internal/ids"
)

// TokenService issues and validates registry tokens. Validation never
// compares against stored plaintext: the presented key is hashed and the
// derivation looked up.
type TokenService struct {
	store TokenStore
}

func NewTokenService(store TokenStore) *TokenService {
	return &TokenService{store: store}
}

// Generate creates a token for userID and returns the record together with
// the plaintext key. The key is not recoverable afterwards.
func (s *TokenService) Generate(ctx context.Context, userID, name string) (*Token, string, error) {
	userID = strings.TrimSpace(userID)
	name = strings.TrimSpace(name)
	if userID == "" || name == "" {
		return nil, "", ErrInvalidInput
	}

	key, err := newKey()
	if err != nil {
		return nil, "", err
	}
	tok := &Token{
		ID:        ids.New(),
		UserID:    userID,
		Name:      name,
		KeyHash:   HashKey(key),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Create(ctx, tok); err != nil {
		return nil, "", err
	}
	return tok, key, nil
}

// Authenticate resolves a bearer key to the owning user id.
func (s *TokenService) Authenticate(ctx context.Context, key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrInvalidToken
	}
	tok, err := s.store.FindByHash(ctx, HashKey(key))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrInvalidToken
		}
		return "", err
	}
	return tok.UserID, nil
}

// List returns the tokens owned by userID. Key hashes are included; plaintext
// keys are gone for good.
func (s *TokenService) List(ctx context.Context, userID string) ([]*Token, error) {
	return s.store.ListByUser(ctx, userID)
}

// Delete revokes one of the user's own tokens.
func (s *TokenService) Delete(ctx context.Context, userID, tokenID string) error {
	return s.store.Delete(ctx, userID, tokenID)
}

// HashKey derives the stored form of a token key.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// newKey returns 16 random bytes as 32 lowercase hex characters.
func newKey() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf[:]), nil
}
