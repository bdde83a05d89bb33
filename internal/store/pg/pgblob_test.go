package pg

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"cratevault.org/internal/auth"
	"cratevault.org/internal/storage"
)

func TestBlobPutGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	blobs := NewBlobStore(db)

	data := []byte("tarball")
	// the conflict clause keeps existing rows, a key is never rewritten
	mock.ExpectExec(regexp.QuoteMeta(`insert into crate_files(key, data) values ($1,$2) on conflict (key) do nothing`)).
		WithArgs("crates/foo/foo-1.0.0.crate", data).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`select data from crate_files where key=$1`)).
		WithArgs("crates/foo/foo-1.0.0.crate").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow(data))

	ctx := context.Background()
	if err := blobs.Put(ctx, "crates/foo/foo-1.0.0.crate", data); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := blobs.Get(ctx, "crates/foo/foo-1.0.0.crate")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("blob round trip mismatch: %q", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestBlobGetMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	blobs := NewBlobStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(`select data from crate_files where key=$1`)).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"data"}))

	if _, err := blobs.Get(context.Background(), "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("got %v, want storage.ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestTokenStoreFindByHash(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	store := NewTokenStore(db)

	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`select id, user_id, name, key_hash, created_at`)).
		WithArgs("hash-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "key_hash", "created_at"}).
			AddRow("tok-1", "user-1", "laptop", "hash-1", created))

	tok, err := store.FindByHash(context.Background(), "hash-1")
	if err != nil {
		t.Fatalf("FindByHash: %v", err)
	}
	if tok.UserID != "user-1" || tok.Name != "laptop" {
		t.Fatalf("unexpected token: %+v", tok)
	}

	mock.ExpectQuery(regexp.QuoteMeta(`select id, user_id, name, key_hash, created_at`)).
		WithArgs("hash-2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "key_hash", "created_at"}))
	if _, err := store.FindByHash(context.Background(), "hash-2"); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("got %v, want auth.ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestTokenStoreDeleteGuardsOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	store := NewTokenStore(db)

	mock.ExpectExec(regexp.QuoteMeta(`delete from auth_tokens where id=$1 and user_id=$2`)).
		WithArgs("tok-1", "user-2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Delete(context.Background(), "user-2", "tok-1"); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("got %v, want auth.ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
