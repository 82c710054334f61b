package repository

import (
	"context"
	"errors"
	"fmt"

	"leadintake_backend/internal/leads/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	listTenantAgentsQuery = `SELECT a.id, a.tenant_id, a.name, COALESCE(a.email, ''), COALESCE(a.phone, ''), a.active, a.suspended
		FROM agents a
		WHERE a.tenant_id = $1 AND a.active AND NOT a.suspended
		ORDER BY a.id ASC`

	listCampaignAgentsQuery = `SELECT a.id, a.tenant_id, a.name, COALESCE(a.email, ''), COALESCE(a.phone, ''), a.active, a.suspended
		FROM agents a
		JOIN campaign_agents ca ON ca.agent_id = a.id
		WHERE a.tenant_id = $1 AND ca.campaign_id = $2 AND a.active AND NOT a.suspended
		ORDER BY a.id ASC`

	getCampaignQuery = `SELECT id, tenant_id, name, status
		FROM campaigns WHERE tenant_id = $1 AND id = $2`
)

// AgentRepository reads agents and campaigns.
type AgentRepository struct {
	pool *pgxpool.Pool
}

// NewAgentRepository creates an AgentRepository on pool.
func NewAgentRepository(pool *pgxpool.Pool) *AgentRepository {
	return &AgentRepository{pool: pool}
}

func (r *AgentRepository) ListEligibleAgents(ctx context.Context, tenantID int64, campaignID *int64) ([]domain.Agent, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if campaignID == nil {
		rows, err = r.pool.Query(ctx, listTenantAgentsQuery, tenantID)
	} else {
		rows, err = r.pool.Query(ctx, listCampaignAgentsQuery, tenantID, *campaignID)
	}
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	agents := make([]domain.Agent, 0)
	for rows.Next() {
		var a domain.Agent
		if err := rows.Scan(&a.ID, &a.TenantID, &a.Name, &a.Email, &a.Phone, &a.Active, &a.Suspended); err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	return agents, nil
}

func (r *AgentRepository) GetCampaign(ctx context.Context, tenantID, campaignID int64) (domain.Campaign, error) {
	var c domain.Campaign
	err := r.pool.QueryRow(ctx, getCampaignQuery, tenantID, campaignID).Scan(&c.ID, &c.TenantID, &c.Name, &c.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Campaign{}, domain.ErrCampaignNotFound
	}
	if err != nil {
		return domain.Campaign{}, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

var _ AgentDirectory = (*AgentRepository)(nil)
