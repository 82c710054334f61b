package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"leadintake_backend/internal/leads/domain"
	"leadintake_backend/platform/db"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const leadColumns = `id, tenant_id, campaign_id, source_lead_id, lead_identifier, form_id,
	phone, name, email, source, sub_source, status, assigned_agent_id, assigned_at,
	extension, created_at, updated_at`

const (
	findByIdentifierQuery = `SELECT ` + leadColumns + `
		FROM leads WHERE tenant_id = $1 AND lead_identifier = $2
		LIMIT 1`

	findBySourceLeadIDQuery = `SELECT ` + leadColumns + `
		FROM leads WHERE tenant_id = $1 AND source_lead_id = $2
		LIMIT 1`

	// Phone matching is exact on the stored raw value; the oldest lead wins.
	findByPhoneQuery = `SELECT ` + leadColumns + `
		FROM leads WHERE tenant_id = $1 AND phone = $2
		ORDER BY created_at ASC, id ASC
		LIMIT 1`

	insertLeadQuery = `INSERT INTO leads (
			tenant_id, campaign_id, source_lead_id, lead_identifier, form_id,
			phone, name, email, source, sub_source, status, extension
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`

	updateLeadQuery = `UPDATE leads
		SET name = $3, email = $4, sub_source = $5, campaign_id = $6, extension = $7, updated_at = $8
		WHERE tenant_id = $1 AND id = $2`

	latestAssignedTenantQuery = `SELECT ` + leadColumns + `
		FROM leads WHERE tenant_id = $1 AND assigned_agent_id IS NOT NULL
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	latestAssignedCampaignQuery = `SELECT ` + leadColumns + `
		FROM leads WHERE tenant_id = $1 AND campaign_id = $2 AND assigned_agent_id IS NOT NULL
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	assignLeadQuery = `UPDATE leads
		SET assigned_agent_id = $3, assigned_at = $4, updated_at = $4
		WHERE tenant_id = $1 AND id = $2 AND assigned_agent_id IS NULL`

	existsSinceQuery = `SELECT EXISTS (
			SELECT 1 FROM leads
			WHERE tenant_id = $1 AND phone = $2 AND source = $3 AND created_at >= $4
		)`
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository is the pgx-backed lead store.
type Repository struct {
	pool *pgxpool.Pool
	db   DBTX
}

// New creates a Repository on pool.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, db: pool}
}

// InTx runs fn against a Repository bound to a single transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
func (r *Repository) InTx(ctx context.Context, fn func(tx LeadStore) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&Repository{pool: r.pool, db: tx})
	})
}

func (r *Repository) FindByIdentifier(ctx context.Context, tenantID int64, identifier string) (domain.Lead, error) {
	return r.queryLead(ctx, findByIdentifierQuery, tenantID, identifier)
}

func (r *Repository) FindBySourceLeadID(ctx context.Context, tenantID int64, sourceLeadID string) (domain.Lead, error) {
	return r.queryLead(ctx, findBySourceLeadIDQuery, tenantID, sourceLeadID)
}

func (r *Repository) FindByPhone(ctx context.Context, tenantID int64, phone string) (domain.Lead, error) {
	return r.queryLead(ctx, findByPhoneQuery, tenantID, phone)
}

func (r *Repository) Insert(ctx context.Context, lead *domain.Lead) error {
	ext, err := marshalExtension(lead.Extension)
	if err != nil {
		return err
	}

	err = r.db.QueryRow(ctx, insertLeadQuery,
		lead.TenantID, lead.CampaignID, lead.SourceLeadID, lead.LeadIdentifier, lead.FormID,
		lead.Phone, lead.Name, lead.Email, lead.Source, lead.SubSource, lead.Status, ext,
	).Scan(&lead.ID, &lead.CreatedAt, &lead.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("insert lead: %w", domain.ErrDuplicateLead)
	}
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

func (r *Repository) Update(ctx context.Context, lead *domain.Lead) error {
	ext, err := marshalExtension(lead.Extension)
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, updateLeadQuery,
		lead.TenantID, lead.ID, lead.Name, lead.Email, lead.SubSource, lead.CampaignID, ext, lead.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) LatestAssignedInScope(ctx context.Context, tenantID int64, campaignID *int64) (domain.Lead, error) {
	if campaignID == nil {
		return r.queryLead(ctx, latestAssignedTenantQuery, tenantID)
	}
	return r.queryLead(ctx, latestAssignedCampaignQuery, tenantID, *campaignID)
}

func (r *Repository) AssignLead(ctx context.Context, tenantID, leadID, agentID int64, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, assignLeadQuery, tenantID, leadID, agentID, at)
	if err != nil {
		return false, fmt.Errorf("assign lead: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) ExistsSince(ctx context.Context, tenantID int64, phone, source string, since time.Time) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, existsSinceQuery, tenantID, phone, source, since).Scan(&exists); err != nil {
		return false, fmt.Errorf("same-day lookup: %w", err)
	}
	return exists, nil
}

func (r *Repository) queryLead(ctx context.Context, query string, args ...any) (domain.Lead, error) {
	lead, err := scanLead(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, domain.ErrNotFound
	}
	return lead, err
}

func scanLead(row pgx.Row) (domain.Lead, error) {
	var (
		lead domain.Lead
		ext  []byte
	)
	err := row.Scan(
		&lead.ID, &lead.TenantID, &lead.CampaignID, &lead.SourceLeadID, &lead.LeadIdentifier, &lead.FormID,
		&lead.Phone, &lead.Name, &lead.Email, &lead.Source, &lead.SubSource, &lead.Status,
		&lead.AssignedAgentID, &lead.AssignedAt, &ext, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return domain.Lead{}, err
	}

	lead.Extension = domain.ExtensionData{}
	if len(ext) > 0 {
		if err := json.Unmarshal(ext, &lead.Extension); err != nil {
			return domain.Lead{}, fmt.Errorf("decode lead extension: %w", err)
		}
	}
	return lead, nil
}

func marshalExtension(ext domain.ExtensionData) ([]byte, error) {
	if ext == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(ext)
	if err != nil {
		return nil, fmt.Errorf("encode lead extension: %w", err)
	}
	return data, nil
}

var (
	_ LeadStore  = (*Repository)(nil)
	_ Transactor = (*Repository)(nil)
)
