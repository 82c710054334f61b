package repository

import (
	"context"
	"time"

	"leadintake_backend/internal/leads/domain"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// LeadFinder looks up existing leads by their identity keys.
// Every method returns domain.ErrNotFound when nothing matches.
type LeadFinder interface {
	FindByIdentifier(ctx context.Context, tenantID int64, identifier string) (domain.Lead, error)
	FindBySourceLeadID(ctx context.Context, tenantID int64, sourceLeadID string) (domain.Lead, error)
	FindByPhone(ctx context.Context, tenantID int64, phone string) (domain.Lead, error)
}

// LeadWriter persists new leads and merges updates into existing ones.
type LeadWriter interface {
	// Insert fills ID, CreatedAt and UpdatedAt on success.
	// Returns domain.ErrDuplicateLead when an identity key is already taken.
	Insert(ctx context.Context, lead *domain.Lead) error
	// Update writes the mutable intake fields of an existing lead.
	Update(ctx context.Context, lead *domain.Lead) error
}

// AssignmentStore reads the round-robin cursor and records assignments.
type AssignmentStore interface {
	// LatestAssignedInScope returns the most recently created assigned lead
	// of the tenant, narrowed to campaignID when it is non-nil.
	LatestAssignedInScope(ctx context.Context, tenantID int64, campaignID *int64) (domain.Lead, error)
	// AssignLead sets the agent only if the lead has none yet and reports whether it did.
	AssignLead(ctx context.Context, tenantID, leadID, agentID int64, at time.Time) (bool, error)
}

// SameDayChecker supports the email adapters' duplicate suppression.
type SameDayChecker interface {
	ExistsSince(ctx context.Context, tenantID int64, phone, source string, since time.Time) (bool, error)
}

// AgentDirectory resolves agents and campaigns for a tenant.
type AgentDirectory interface {
	// ListEligibleAgents returns active, non-suspended agents ordered by ascending ID,
	// narrowed to enrolled agents when campaignID is non-nil.
	ListEligibleAgents(ctx context.Context, tenantID int64, campaignID *int64) ([]domain.Agent, error)
	// GetCampaign returns domain.ErrCampaignNotFound when the campaign does not belong to the tenant.
	GetCampaign(ctx context.Context, tenantID, campaignID int64) (domain.Campaign, error)
}

// LeadStore is the full persistence surface used by the ingestion core.
type LeadStore interface {
	LeadFinder
	LeadWriter
	AssignmentStore
	SameDayChecker
}

// Transactor runs a unit of work against a transaction-bound LeadStore.
type Transactor interface {
	InTx(ctx context.Context, fn func(tx LeadStore) error) error
}
