package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/oops"
	_ "modernc.org/sqlite"
)

var _ Store = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	bucket     TEXT    NOT NULL,
	key        TEXT    NOT NULL,
	body       TEXT    NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (bucket, key)
);
`

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, oops.In("store").Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, oops.In("store").Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", schema} {
		if _, err = db.Exec(stmt); err != nil {
			db.Close()
			return nil, oops.In("store").Errorf("failed to init schema: %w", err)
		}
	}

	slog.Info("SQLite store opened", "path", path)

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Read(ctx context.Context, bucket, key string) (string, error) {
	if err := validateName(bucket, key); err != nil {
		return "", err
	}

	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE bucket = ? AND key = ?`, bucket, key,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotExist
	}
	if err != nil {
		return "", oops.In("store").With("bucket", bucket, "key", key).Wrapf(err, "failed to read document")
	}

	return body, nil
}

func (s *SQLiteStore) Write(ctx context.Context, bucket, key, text string) error {
	if err := validateName(bucket, key); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (bucket, key, body, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(bucket, key) DO UPDATE SET
			body = excluded.body,
			updated_at = excluded.updated_at
	`, bucket, key, text, time.Now().Unix())
	if err != nil {
		return oops.In("store").With("bucket", bucket, "key", key).Wrapf(err, "failed to write document")
	}

	return nil
}

func (s *SQLiteStore) Shutdown() error {
	return s.db.Close()
}
