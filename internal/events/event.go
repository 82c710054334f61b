// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"leadintake_backend/platform/events"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Ingestion Events
// =============================================================================

// LeadIngested is published after a record was either created or merged into an existing lead.
type LeadIngested struct {
	BaseEvent
	TenantID int64  `json:"tenantId"`
	LeadID   int64  `json:"leadId"`
	Source   string `json:"source"`
	Created  bool   `json:"created"`
}

func (e LeadIngested) EventName() string { return "leads.lead.ingested" }

// LeadAssigned is published when the round-robin engine picked an agent for a new lead.
type LeadAssigned struct {
	BaseEvent
	TenantID   int64  `json:"tenantId"`
	LeadID     int64  `json:"leadId"`
	AgentID    int64  `json:"agentId"`
	CampaignID *int64 `json:"campaignId,omitempty"`
}

func (e LeadAssigned) EventName() string { return "leads.lead.assigned" }

// AssignmentSkipped is published when a new lead stays unassigned because its scope had no eligible agents.
type AssignmentSkipped struct {
	BaseEvent
	TenantID   int64  `json:"tenantId"`
	LeadID     int64  `json:"leadId"`
	CampaignID *int64 `json:"campaignId,omitempty"`
}

func (e AssignmentSkipped) EventName() string { return "leads.assignment.skipped" }

// IntegrationSynced is published after a pull or mailbox integration finished one run.
type IntegrationSynced struct {
	BaseEvent
	TenantID      int64  `json:"tenantId"`
	IntegrationID int64  `json:"integrationId"`
	Kind          string `json:"kind"`
	Fetched       int    `json:"fetched"`
	Ingested      int    `json:"ingested"`
}

func (e IntegrationSynced) EventName() string { return "integrations.sync.completed" }
