package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps credentials in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the credential database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, path: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS credentials (
		account TEXT PRIMARY KEY,
		secret  TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Path returns the database location.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Lookup implements Store.
func (s *SQLiteStore) Lookup(ctx context.Context, account string) (string, bool, error) {
	var secret string
	err := s.db.QueryRowContext(ctx,
		"SELECT secret FROM credentials WHERE account = ?", account).Scan(&secret)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up %q: %w", account, err)
	}
	return secret, true, nil
}

// Put inserts or replaces the secret of account.
func (s *SQLiteStore) Put(ctx context.Context, account, secret string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO credentials (account, secret) VALUES (?, ?)",
		account, secret)
	if err != nil {
		return fmt.Errorf("failed to store %q: %w", account, err)
	}
	return nil
}

// Delete removes account. Deleting an unknown account is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, account string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM credentials WHERE account = ?", account); err != nil {
		return fmt.Errorf("failed to delete %q: %w", account, err)
	}
	return nil
}

// All returns every credential. The demo copies them into a MemoryStore so
// the timed path does not include a database round trip.
func (s *SQLiteStore) All(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT account, secret FROM credentials")
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var account, secret string
		if err := rows.Scan(&account, &secret); err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}
		out[account] = secret
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
