package domain

import (
	"strings"
	"time"
)

const (
	// StatusNew is the status of every freshly created lead.
	StatusNew = "new"
	// UnknownName is the placeholder stored when a record carries no name.
	// Updates never overwrite an existing name with it.
	UnknownName = "Unknown"
)

// Well-known source tags.
const (
	SourceFacebook    = "facebook"
	SourceIndiaMART   = "indiamart"
	SourceMagicbricks = "magicbricks"
	Source99acres     = "99acres"
	SourceJustDial    = "justdial"
	SourceHousing     = "housing"
	SourceWebhook     = "webhook"
	SourceManual      = "manual"
)

// Lead is a customer inquiry owned by exactly one tenant.
type Lead struct {
	ID              int64
	TenantID        int64
	CampaignID      *int64
	SourceLeadID    *string
	LeadIdentifier  *string
	FormID          *string
	Phone           string
	Name            string
	Email           *string
	Source          string
	SubSource       *string
	Status          string
	AssignedAgentID *int64
	AssignedAt      *time.Time
	Extension       ExtensionData
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsAssigned reports whether an agent already owns the lead.
func (l *Lead) IsAssigned() bool {
	return l.AssignedAgentID != nil
}

// NormalizedLeadRecord is the source-agnostic shape every adapter produces.
type NormalizedLeadRecord struct {
	Name           string
	Phone          string
	Email          string
	SubSource      string
	SourceLeadID   string
	LeadIdentifier string
	FormID         string
	Extension      ExtensionData
}

// Trimmed returns a copy with surrounding whitespace removed from every text field.
func (r NormalizedLeadRecord) Trimmed() NormalizedLeadRecord {
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Email = strings.TrimSpace(r.Email)
	r.SubSource = strings.TrimSpace(r.SubSource)
	r.SourceLeadID = strings.TrimSpace(r.SourceLeadID)
	r.LeadIdentifier = strings.TrimSpace(r.LeadIdentifier)
	r.FormID = strings.TrimSpace(r.FormID)
	return r
}

// IngestOutcome classifies what an ingestion did.
type IngestOutcome string

const (
	OutcomeCreated           IngestOutcome = "created"
	OutcomeUpdated           IngestOutcome = "updated"
	OutcomeAssignmentSkipped IngestOutcome = "assignment_skipped"
)

// IngestResult is the lead plus the outcome of a single ingestion.
type IngestResult struct {
	Lead    *Lead
	Outcome IngestOutcome
	Agent   *Agent
}

// StringPtr returns nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
