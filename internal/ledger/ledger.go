// Package ledger records which transport messages have already been turned
// into lead ingestions, so re-delivered messages are skipped.
package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	existsQuery = `SELECT EXISTS (
			SELECT 1 FROM processed_messages WHERE tenant_id = $1 AND message_id = $2
		)`

	recordQuery = `INSERT INTO processed_messages (tenant_id, message_id, source)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, message_id) DO NOTHING`
)

// Ledger is the processed-message store.
type Ledger interface {
	Exists(ctx context.Context, tenantID int64, messageID string) (bool, error)
	// Record is insert-if-absent; recording the same message twice is not an error.
	Record(ctx context.Context, tenantID int64, messageID, source string) error
}

// Repository is the Postgres Ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a Repository on pool.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Exists(ctx context.Context, tenantID int64, messageID string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, existsQuery, tenantID, messageID).Scan(&exists); err != nil {
		return false, fmt.Errorf("ledger exists: %w", err)
	}
	return exists, nil
}

func (r *Repository) Record(ctx context.Context, tenantID int64, messageID, source string) error {
	if _, err := r.pool.Exec(ctx, recordQuery, tenantID, messageID, source); err != nil {
		return fmt.Errorf("ledger record: %w", err)
	}
	return nil
}

var _ Ledger = (*Repository)(nil)
