// Package pg implements the registry's capability interfaces on PostgreSQL.
//
// Version records for a package live in one table partitioned by package
// name; uniqueness of (package_name, version) is the table's primary key, so
// a duplicate publish fails inside the store instead of in a read-then-write
// race. The first publish of a package creates the package row, the owner
// row and the version row in a single transaction.
package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"cratevault.org/internal/registry"
)

type Store struct {
	db *sql.DB
}

var _ registry.Repository = (*Store)(nil)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing handle. Used by tests and by cmd/api, which
// shares one pool across the repository, blob and token stores.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) GetPackageInfo(ctx context.Context, name string) ([]registry.PackageInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		select metadata, yanked from package_versions
		where package_name=$1
		order by seq asc
	`, name)
	if err != nil {
		return nil, fmt.Errorf("query versions of %s: %w", name, err)
	}
	defer rows.Close()

	var infos []registry.PackageInfo
	for rows.Next() {
		info, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("decode version record of %s: %w", name, err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, &registry.PackageNotFoundError{Name: name}
	}
	return infos, nil
}

// HeadVersion relies on sort_key being collated "C": version precedence is
// encoded for byte-wise comparison, locale collations would break it.
func (s *Store) HeadVersion(ctx context.Context, name string) (registry.PackageInfo, error) {
	row := s.db.QueryRowContext(ctx, `
		select metadata, yanked from package_versions
		where package_name=$1
		order by sort_key desc
		limit 1
	`, name)
	info, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return registry.PackageInfo{}, &registry.PackageNotFoundError{Name: name}
	}
	if err != nil {
		return registry.PackageInfo{}, fmt.Errorf("head version of %s: %w", name, err)
	}
	return info, nil
}

func (s *Store) StorePackageInfo(ctx context.Context, publisher string, info registry.PackageInfo) error {
	version, err := semver.NewVersion(info.Vers)
	if err != nil {
		return fmt.Errorf("%w: %q is not a valid version", registry.ErrMalformedPayload, info.Vers)
	}
	metadata, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode version record: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Create the package on first publish. A concurrent creator wins the
	// row; the conflict clause makes the loser carry on to the version
	// insert, where uniqueness is decided.
	res, err := tx.ExecContext(ctx,
		`insert into packages(name) values($1) on conflict (name) do nothing`, info.Name)
	if err != nil {
		return classifyWriteError(err, info)
	}
	created, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if created == 1 {
		if _, err := tx.ExecContext(ctx, `
			insert into package_owners(package_name, user_id)
			values ($1,$2) on conflict do nothing
		`, info.Name, publisher); err != nil {
			return classifyWriteError(err, info)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		insert into package_versions(package_name, version, sort_key, metadata)
		values ($1,$2,$3,$4)
	`, info.Name, info.Vers, registry.SortKey(version), metadata); err != nil {
		return classifyWriteError(err, info)
	}

	if err := tx.Commit(); err != nil {
		return classifyWriteError(err, info)
	}
	return nil
}

func (s *Store) SetYanked(ctx context.Context, name, version string, yanked bool) error {
	res, err := s.db.ExecContext(ctx, `
		update package_versions set yanked=$3
		where package_name=$1 and version=$2
	`, name, version, yanked)
	if err != nil {
		return fmt.Errorf("set yanked on %s-%s: %w", name, version, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &registry.VersionNotFoundError{Name: name, Version: version}
	}
	return nil
}

func (s *Store) ListOwners(ctx context.Context, name string) ([]registry.Owner, error) {
	if err := s.packageExists(ctx, name); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		select user_id from package_owners
		where package_name=$1
		order by user_id asc
	`, name)
	if err != nil {
		return nil, fmt.Errorf("list owners of %s: %w", name, err)
	}
	defer rows.Close()

	var owners []registry.Owner
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		owners = append(owners, registry.Owner{ID: id, Login: id})
	}
	return owners, rows.Err()
}

func (s *Store) AddOwners(ctx context.Context, name string, userIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var dummy int
	err = tx.QueryRowContext(ctx, `select 1 from packages where name=$1`, name).Scan(&dummy)
	if errors.Is(err, sql.ErrNoRows) {
		return &registry.PackageNotFoundError{Name: name}
	}
	if err != nil {
		return fmt.Errorf("check package %s: %w", name, err)
	}

	for _, id := range userIDs {
		if _, err := tx.ExecContext(ctx, `
			insert into package_owners(package_name, user_id)
			values ($1,$2) on conflict do nothing
		`, name, id); err != nil {
			return fmt.Errorf("add owner %s to %s: %w", id, name, err)
		}
	}
	return tx.Commit()
}

func (s *Store) packageExists(ctx context.Context, name string) error {
	var dummy int
	err := s.db.QueryRowContext(ctx, `select 1 from packages where name=$1`, name).Scan(&dummy)
	if errors.Is(err, sql.ErrNoRows) {
		return &registry.PackageNotFoundError{Name: name}
	}
	if err != nil {
		return fmt.Errorf("check package %s: %w", name, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVersion(row scanner) (registry.PackageInfo, error) {
	var (
		metadata []byte
		yanked   bool
	)
	if err := row.Scan(&metadata, &yanked); err != nil {
		return registry.PackageInfo{}, err
	}
	var info registry.PackageInfo
	if err := json.Unmarshal(metadata, &info); err != nil {
		return registry.PackageInfo{}, err
	}
	// The column is authoritative; the stored document keeps its
	// publish-time value.
	info.Yanked = yanked
	return info, nil
}

// classifyWriteError maps driver errors onto the registry taxonomy before
// they cross the package boundary.
func classifyWriteError(err error, info registry.PackageInfo) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if pgErr.ConstraintName == "package_versions_pkey" {
				return &registry.DuplicateVersionError{Name: info.Name, Version: info.Vers}
			}
			return registry.ErrWriteConflict
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return registry.ErrWriteConflict
		}
	}
	return fmt.Errorf("persist %s-%s: %w", info.Name, info.Vers, err)
}
