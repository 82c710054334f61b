package facebook

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrPageNotFound is returned for pages no tenant has connected.
var ErrPageNotFound = errors.New("facebook page not connected")

// ErrPageTaken is returned when another tenant already connected the page.
var ErrPageTaken = errors.New("facebook page is connected to another tenant")

// Page is a connected Facebook page. AccessToken is sealed at rest.
type Page struct {
	PageID         string
	TenantID       int64
	CampaignID     *int64
	Name           string
	AccessTokenEnc string
}

// PageStore finds the tenant behind a page.
type PageStore interface {
	GetPage(ctx context.Context, pageID string) (Page, error)
}

// PageRepository is the Postgres PageStore.
type PageRepository struct {
	pool *pgxpool.Pool
}

// NewPageRepository creates a PageRepository.
func NewPageRepository(pool *pgxpool.Pool) *PageRepository {
	return &PageRepository{pool: pool}
}

func (r *PageRepository) GetPage(ctx context.Context, pageID string) (Page, error) {
	var p Page
	err := r.pool.QueryRow(ctx, `
		SELECT page_id, tenant_id, campaign_id, page_name, access_token_enc
		FROM facebook_pages WHERE page_id = $1
	`, pageID).Scan(&p.PageID, &p.TenantID, &p.CampaignID, &p.Name, &p.AccessTokenEnc)
	if errors.Is(err, pgx.ErrNoRows) {
		return Page{}, ErrPageNotFound
	}
	if err != nil {
		return Page{}, fmt.Errorf("get facebook page: %w", err)
	}
	return p, nil
}

// Connect stores or re-points a page. A page belongs to exactly one tenant;
// connecting it again moves it.
func (r *PageRepository) Connect(ctx context.Context, p Page) error {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO facebook_pages (page_id, tenant_id, campaign_id, page_name, access_token_enc)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (page_id) DO UPDATE
		SET campaign_id = EXCLUDED.campaign_id,
			page_name = EXCLUDED.page_name,
			access_token_enc = EXCLUDED.access_token_enc
		WHERE facebook_pages.tenant_id = EXCLUDED.tenant_id
	`, p.PageID, p.TenantID, p.CampaignID, p.Name, p.AccessTokenEnc)
	if err != nil {
		return fmt.Errorf("connect facebook page: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPageTaken
	}
	return nil
}

// Disconnect removes a tenant's page.
func (r *PageRepository) Disconnect(ctx context.Context, tenantID int64, pageID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM facebook_pages WHERE tenant_id = $1 AND page_id = $2`, tenantID, pageID)
	if err != nil {
		return fmt.Errorf("disconnect facebook page: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPageNotFound
	}
	return nil
}
