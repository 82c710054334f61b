// Package assignment picks the agent that receives a newly created lead.
package assignment

import (
	"context"
	"errors"

	"leadintake_backend/internal/leads/domain"
	"leadintake_backend/internal/leads/repository"
	"leadintake_backend/platform/logger"
)

// FallbackPolicy decides what happens when a lead names a campaign that does not exist.
type FallbackPolicy string

const (
	// FallbackWiden assigns from the tenant-wide roster and logs a warning.
	FallbackWiden FallbackPolicy = "widen"
	// FallbackStrict yields an empty roster, so the lead stays unassigned.
	FallbackStrict FallbackPolicy = "strict"
)

// ParseFallbackPolicy maps a config value to a policy, defaulting to FallbackWiden.
func ParseFallbackPolicy(value string) FallbackPolicy {
	if FallbackPolicy(value) == FallbackStrict {
		return FallbackStrict
	}
	return FallbackWiden
}

// Roster resolves the ordered list of agents eligible for a scope.
type Roster struct {
	agents   repository.AgentDirectory
	fallback FallbackPolicy
	log      *logger.Logger
}

// NewRoster creates a Roster.
func NewRoster(agents repository.AgentDirectory, fallback FallbackPolicy, log *logger.Logger) *Roster {
	return &Roster{agents: agents, fallback: fallback, log: log}
}

// Resolve returns eligible agents in ascending ID order. A nil campaignID
// means tenant-wide. A campaign that exists yields only its enrolled agents,
// even when none are eligible.
func (r *Roster) Resolve(ctx context.Context, tenantID int64, campaignID *int64) ([]domain.Agent, error) {
	if campaignID == nil {
		return r.list(ctx, tenantID, nil)
	}

	_, err := r.agents.GetCampaign(ctx, tenantID, *campaignID)
	switch {
	case err == nil:
		return r.list(ctx, tenantID, campaignID)
	case errors.Is(err, domain.ErrCampaignNotFound):
		if r.fallback == FallbackStrict {
			r.log.WithContext(ctx).Warn("campaign not found, lead left unassigned",
				"tenant_id", tenantID, "campaign_id", *campaignID)
			return nil, nil
		}
		r.log.WithContext(ctx).Warn("campaign not found, falling back to tenant-wide roster",
			"tenant_id", tenantID, "campaign_id", *campaignID)
		return r.list(ctx, tenantID, nil)
	default:
		return nil, domain.Persistence("roster.get_campaign", err)
	}
}

// Scope returns the campaign a new lead is filed under. A campaign the tenant
// does not own is dropped so the lead is stored tenant-wide; under
// FallbackStrict the lead is also left unassigned.
func (r *Roster) Scope(ctx context.Context, tenantID int64, campaignID *int64) (*int64, bool, error) {
	if campaignID == nil {
		return nil, true, nil
	}

	_, err := r.agents.GetCampaign(ctx, tenantID, *campaignID)
	switch {
	case err == nil:
		c := *campaignID
		return &c, true, nil
	case errors.Is(err, domain.ErrCampaignNotFound):
		if r.fallback == FallbackStrict {
			r.log.WithContext(ctx).Warn("campaign not found, lead left unassigned",
				"tenant_id", tenantID, "campaign_id", *campaignID)
			return nil, false, nil
		}
		r.log.WithContext(ctx).Warn("campaign not found, filing lead tenant-wide",
			"tenant_id", tenantID, "campaign_id", *campaignID)
		return nil, true, nil
	default:
		return nil, false, domain.Persistence("roster.get_campaign", err)
	}
}

func (r *Roster) list(ctx context.Context, tenantID int64, campaignID *int64) ([]domain.Agent, error) {
	agents, err := r.agents.ListEligibleAgents(ctx, tenantID, campaignID)
	if err != nil {
		return nil, domain.Persistence("roster.list_agents", err)
	}
	return agents, nil
}
