package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"dissent/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore is a SecretStore backed by a single SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite creates or opens the database at path and applies the schema.
//
// The connection is configured with WAL journaling, a 5-second busy timeout
// and a single open connection, since SQLite serializes writers anyway.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, p := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the value stored under key.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, domain.Version, error) {
	var (
		value   []byte
		version int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT value, version FROM secrets WHERE name = ?`, key,
	).Scan(&value, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, domain.ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("get %s: %w", key, err)
	}
	return value, domain.Version(version), nil
}

// Set stores value unconditionally.
func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) (domain.Version, error) {
	var version int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO secrets (name, value, version) VALUES (?, ?, 1)
		ON CONFLICT (name) DO UPDATE
		SET value = excluded.value, version = secrets.version + 1
		RETURNING version`,
		key, value,
	).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("set %s: %w", key, err)
	}
	return domain.Version(version), nil
}

// CompareAndSwap stores value only if key is at the expected version.
func (s *SQLiteStore) CompareAndSwap(
	ctx context.Context,
	key string,
	expected domain.Version,
	value []byte,
) (domain.Version, error) {
	var (
		res sql.Result
		err error
	)
	if expected == 0 {
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO secrets (name, value, version) VALUES (?, ?, 1)
			 ON CONFLICT (name) DO NOTHING`,
			key, value,
		)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE secrets SET value = ?, version = version + 1
			 WHERE name = ? AND version = ?`,
			value, key, int64(expected),
		)
	}
	if err != nil {
		return 0, fmt.Errorf("compare-and-swap %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("compare-and-swap %s: %w", key, err)
	}
	if n == 0 {
		return 0, domain.ErrVersionConflict
	}
	return expected + 1, nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM secrets WHERE name = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// List returns the sorted keys that start with prefix.
func (s *SQLiteStore) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM secrets WHERE substr(name, 1, length(?)) = ? ORDER BY name`,
		prefix, prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

var _ domain.SecretStore = (*SQLiteStore)(nil)
