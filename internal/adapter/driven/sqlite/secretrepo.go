package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ericfisherdev/passhost/internal/domain/model"
	"github.com/ericfisherdev/passhost/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SecureStorage = (*SecretRepo)(nil)

// SecretRepo is the SQLite implementation of the SecureStorage port. It stores
// blobs verbatim; encryption happens before they get here.
type SecretRepo struct {
	db *DB
}

// NewSecretRepo creates a new SecretRepo backed by db.
func NewSecretRepo(db *DB) *SecretRepo {
	return &SecretRepo{db: db}
}

// Save inserts the blob for id or replaces it in a single statement.
func (r *SecretRepo) Save(ctx context.Context, id string, data []byte) error {
	if id == "" {
		return fmt.Errorf("%w: empty id", model.ErrStorage)
	}
	if data == nil {
		data = []byte{}
	}

	const query = `INSERT INTO secrets (id, blob, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET blob = excluded.blob, updated_at = excluded.updated_at`
	if _, err := r.db.Writer.ExecContext(ctx, query, id, data); err != nil {
		return fmt.Errorf("%w: save secret: %w", model.ErrStorage, err)
	}
	return nil
}

// Load returns the blob stored for id.
func (r *SecretRepo) Load(ctx context.Context, id string) ([]byte, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", model.ErrStorage)
	}

	const query = `SELECT blob FROM secrets WHERE id = ?`
	var data []byte
	err := r.db.Reader.QueryRowContext(ctx, query, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load secret: %w", model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load secret: %w", model.ErrStorage, err)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// Delete removes the blob stored for id.
func (r *SecretRepo) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty id", model.ErrStorage)
	}

	const query = `DELETE FROM secrets WHERE id = ?`
	res, err := r.db.Writer.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("%w: delete secret: %w", model.ErrStorage, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: delete secret: rows affected: %w", model.ErrStorage, err)
	}
	if n == 0 {
		return fmt.Errorf("delete secret: %w", model.ErrNotFound)
	}
	return nil
}

// Count returns the number of stored secrets.
func (r *SecretRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.Reader.QueryRowContext(ctx, `SELECT COUNT(*) FROM secrets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count secrets: %w", model.ErrStorage, err)
	}
	return n, nil
}
