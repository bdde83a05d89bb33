package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cratevault.org/internal/storage"
)

// BlobStore keeps package tarballs in a bytea table, sharing the pool with
// the metadata store. Put is first-write-wins: a retry after a failed publish
// finds the orphaned blob already in place and leaves it, and a racing
// publish of the same version can never replace the winner's archive.
type BlobStore struct {
	db *sql.DB
}

func NewBlobStore(db *sql.DB) *BlobStore { return &BlobStore{db: db} }

var _ storage.BlobStore = (*BlobStore)(nil)

func (s *BlobStore) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		insert into crate_files(key, data)
		values ($1,$2)
		on conflict (key) do nothing
	`, key, data)
	if err != nil {
		return fmt.Errorf("store blob %s: %w", key, err)
	}
	return nil
}

func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `select data from crate_files where key=$1`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load blob %s: %w", key, err)
	}
	return data, nil
}
