package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cratevault.org/internal/auth"
	"cratevault.org/internal/ids"
)

// TokenStore implements auth.TokenStore on PostgreSQL.
type TokenStore struct {
	db *sql.DB
}

func NewTokenStore(db *sql.DB) *TokenStore { return &TokenStore{db: db} }

var _ auth.TokenStore = (*TokenStore)(nil)

func (s *TokenStore) Create(ctx context.Context, tok *auth.Token) error {
	if tok.ID == "" {
		tok.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx, `
		insert into auth_tokens(id, user_id, name, key_hash)
		values ($1,$2,$3,$4)
	`, tok.ID, tok.UserID, tok.Name, tok.KeyHash)
	if err != nil {
		return fmt.Errorf("create token: %w", err)
	}
	return nil
}

func (s *TokenStore) FindByHash(ctx context.Context, keyHash string) (*auth.Token, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, user_id, name, key_hash, created_at
		from auth_tokens where key_hash=$1
	`, keyHash)
	var tok auth.Token
	if err := row.Scan(&tok.ID, &tok.UserID, &tok.Name, &tok.KeyHash, &tok.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	return &tok, nil
}

func (s *TokenStore) ListByUser(ctx context.Context, userID string) ([]*auth.Token, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, user_id, name, key_hash, created_at
		from auth_tokens where user_id=$1
		order by created_at asc
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*auth.Token
	for rows.Next() {
		var tok auth.Token
		if err := rows.Scan(&tok.ID, &tok.UserID, &tok.Name, &tok.KeyHash, &tok.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, &tok)
	}
	return res, rows.Err()
}

func (s *TokenStore) Delete(ctx context.Context, userID, tokenID string) error {
	res, err := s.db.ExecContext(ctx,
		`delete from auth_tokens where id=$1 and user_id=$2`, tokenID, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return auth.ErrNotFound
	}
	return nil
}
