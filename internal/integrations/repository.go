package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const integrationColumns = `id, tenant_id, kind, campaign_id, settings, secret_enc, last_sync_time, active, created_at, updated_at`

const (
	listActiveQuery = `SELECT ` + integrationColumns + `
		FROM integrations WHERE active ORDER BY id ASC`

	listByTenantQuery = `SELECT ` + integrationColumns + `
		FROM integrations WHERE tenant_id = $1 ORDER BY kind ASC`

	getByTenantQuery = `SELECT ` + integrationColumns + `
		FROM integrations WHERE tenant_id = $1 AND id = $2`

	// Rows locked by a concurrent sync are skipped rather than waited on.
	claimQuery = `SELECT ` + integrationColumns + `
		FROM integrations WHERE id = $1 AND active
		FOR UPDATE SKIP LOCKED`

	markSyncedQuery = `UPDATE integrations SET last_sync_time = $2, updated_at = now() WHERE id = $1`

	upsertQuery = `INSERT INTO integrations (tenant_id, kind, campaign_id, settings, secret_enc, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tenant_id, kind) DO UPDATE
		SET campaign_id = EXCLUDED.campaign_id,
			settings = EXCLUDED.settings,
			secret_enc = CASE WHEN EXCLUDED.secret_enc = '' THEN integrations.secret_enc ELSE EXCLUDED.secret_enc END,
			active = EXCLUDED.active,
			updated_at = now()
		RETURNING ` + integrationColumns
)

// Repository is the Postgres integration store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) ListActive(ctx context.Context) ([]Integration, error) {
	return r.list(ctx, listActiveQuery)
}

func (r *Repository) ListByTenant(ctx context.Context, tenantID int64) ([]Integration, error) {
	return r.list(ctx, listByTenantQuery, tenantID)
}

func (r *Repository) GetByTenant(ctx context.Context, tenantID, id int64) (Integration, error) {
	in, err := scanIntegration(r.pool.QueryRow(ctx, getByTenantQuery, tenantID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Integration{}, ErrNotFound
	}
	return in, err
}

// Upsert creates or replaces the tenant's integration of in.Kind. An empty
// SecretEnc keeps the stored secret.
func (r *Repository) Upsert(ctx context.Context, in Integration) (Integration, error) {
	settings, err := json.Marshal(in.Settings)
	if err != nil {
		return Integration{}, fmt.Errorf("encode integration settings: %w", err)
	}
	out, err := scanIntegration(r.pool.QueryRow(ctx, upsertQuery,
		in.TenantID, in.Kind, in.CampaignID, settings, in.SecretEnc, in.Active,
	))
	if err != nil {
		return Integration{}, fmt.Errorf("upsert integration: %w", err)
	}
	return out, nil
}

// Claim locks the integration row for the duration of fn. When fn succeeds
// the returned time becomes last_sync_time in the same transaction; when it
// fails, last_sync_time is left as it was.
func (r *Repository) Claim(ctx context.Context, id int64, fn func(ctx context.Context, in Integration) (time.Time, error)) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		in, err := scanIntegration(tx.QueryRow(ctx, claimQuery, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrBusy
		}
		if err != nil {
			return fmt.Errorf("claim integration: %w", err)
		}

		syncedAt, err := fn(ctx, in)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, markSyncedQuery, id, syncedAt); err != nil {
			return fmt.Errorf("mark integration synced: %w", err)
		}
		return nil
	})
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]Integration, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list integrations: %w", err)
	}
	defer rows.Close()

	out := make([]Integration, 0)
	for rows.Next() {
		in, err := scanIntegration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func scanIntegration(row pgx.Row) (Integration, error) {
	var (
		in       Integration
		settings []byte
	)
	err := row.Scan(&in.ID, &in.TenantID, &in.Kind, &in.CampaignID, &settings, &in.SecretEnc,
		&in.LastSyncTime, &in.Active, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		return Integration{}, err
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &in.Settings); err != nil {
			return Integration{}, fmt.Errorf("decode integration settings: %w", err)
		}
	}
	return in, nil
}
