package notification

import (
	"leadintake_backend/internal/leads/domain"
)

// Assignment is everything a channel needs to tell an agent about a new lead.
// It is the payload of the queued notify task, so it carries values, not IDs to look up.
type Assignment struct {
	TenantID   int64  `json:"tenantId"`
	LeadID     int64  `json:"leadId"`
	CampaignID *int64 `json:"campaignId,omitempty"`

	AgentID    int64  `json:"agentId"`
	AgentName  string `json:"agentName"`
	AgentEmail string `json:"agentEmail,omitempty"`
	AgentPhone string `json:"agentPhone,omitempty"`

	LeadName  string `json:"leadName"`
	LeadPhone string `json:"leadPhone"`
	LeadEmail string `json:"leadEmail,omitempty"`
	Source    string `json:"source"`
	SubSource string `json:"subSource,omitempty"`
}

// NewAssignment snapshots agent and lead.
func NewAssignment(agent domain.Agent, lead domain.Lead) Assignment {
	return Assignment{
		TenantID:   lead.TenantID,
		LeadID:     lead.ID,
		CampaignID: lead.CampaignID,
		AgentID:    agent.ID,
		AgentName:  agent.Name,
		AgentEmail: agent.Email,
		AgentPhone: agent.Phone,
		LeadName:   lead.Name,
		LeadPhone:  lead.Phone,
		LeadEmail:  domain.Deref(lead.Email),
		Source:     lead.Source,
		SubSource:  domain.Deref(lead.SubSource),
	}
}

// SourceLabel is the source plus sub-source when one is known, e.g. "facebook (Summer Launch)".
func (a Assignment) SourceLabel() string {
	if a.SubSource == "" {
		return a.Source
	}
	return a.Source + " (" + a.SubSource + ")"
}
