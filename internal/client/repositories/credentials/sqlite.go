package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/creditconsole/internal/dbx"
)

type SQLiteRepository struct {
	db   dbx.DBTX
	conn *sql.DB
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, conn: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM session_entries WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session entry[%s]: %w", key, err)
	}
	return value, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO session_entries (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set session entry[%s]: %w", key, err)
	}
	return nil
}

// SetAll upserts all entries in a single transaction.
func (r *SQLiteRepository) SetAll(ctx context.Context, entries map[string][]byte) error {
	return dbx.WithTx(ctx, r.conn, nil, func(ctx context.Context, tx dbx.DBTX) error {
		txRepo := &SQLiteRepository{db: tx}
		for key, value := range entries {
			if err := txRepo.Set(ctx, key, value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM session_entries WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete session entry[%s]: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM session_entries`)
	if err != nil {
		return fmt.Errorf("failed to clear session entries: %w", err)
	}
	return nil
}
