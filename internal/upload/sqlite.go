package upload

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Compile-time check that SQLiteRepository implements Repository.
var _ Repository = (*SQLiteRepository)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS uploads (
	id         TEXT PRIMARY KEY,
	filename   TEXT NOT NULL,
	size       INTEGER NOT NULL,
	duration   REAL NOT NULL,
	url        TEXT NOT NULL DEFAULT '',
	path       TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
`

// SQLiteRepository persists uploads in a SQLite database so the catalog
// survives restarts.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (or creates) the database at dbPath and applies
// the schema.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Close closes the underlying database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Save persists an upload record, updating it if it already exists.
func (r *SQLiteRepository) Save(ctx context.Context, u *Upload) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO uploads (id, filename, size, duration, url, path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			size = excluded.size,
			duration = excluded.duration,
			url = excluded.url,
			path = excluded.path
	`, u.ID, u.Filename, u.Size, u.Duration, u.URL, u.Path, u.CreatedAt.Format(time.RFC3339Nano))
	return err
}

// FindByID retrieves an upload by its ID.
func (r *SQLiteRepository) FindByID(ctx context.Context, id string) (*Upload, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, filename, size, duration, url, path, created_at
		FROM uploads WHERE id = ?
	`, id)

	u, err := scanUpload(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUploadNotFound
	}
	return u, err
}

// List returns all uploads, newest first.
func (r *SQLiteRepository) List(ctx context.Context) ([]*Upload, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, filename, size, duration, url, path, created_at
		FROM uploads ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []*Upload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

// Delete removes an upload record.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM uploads WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUploadNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUpload(row rowScanner) (*Upload, error) {
	var (
		u         Upload
		createdAt string
	)
	if err := row.Scan(&u.ID, &u.Filename, &u.Size, &u.Duration, &u.URL, &u.Path, &createdAt); err != nil {
		return nil, err
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	u.CreatedAt = ts
	return &u, nil
}
