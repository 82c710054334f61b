package transport

import (
	"time"

	"leadintake_backend/internal/leads/domain"
)

// Request DTOs
type CreateLeadRequest struct {
	Name         string         `json:"name" validate:"max=200"`
	Phone        string         `json:"phone" validate:"omitempty,max=32,phone_digits"`
	Email        string         `json:"email" validate:"omitempty,email,max=254"`
	SubSource    string         `json:"subSource" validate:"max=100"`
	SourceLeadID string         `json:"sourceLeadId" validate:"max=100"`
	CampaignID   *int64         `json:"campaignId" validate:"omitempty,gt=0"`
	Message      string         `json:"message" validate:"max=4000"`
	Extension    map[string]any `json:"extension" validate:"max=50"`
}

// Record converts the request into the ingestion shape.
func (r CreateLeadRequest) Record() domain.NormalizedLeadRecord {
	rec := domain.NormalizedLeadRecord{
		Name:         r.Name,
		Phone:        r.Phone,
		Email:        r.Email,
		SubSource:    r.SubSource,
		SourceLeadID: r.SourceLeadID,
		Extension:    domain.ExtensionData{},
	}
	for key, value := range r.Extension {
		_ = rec.Extension.Set(key, value)
	}
	rec.Extension.SetString(domain.ExtMessage, r.Message)
	return rec
}

// Response DTOs
type LeadResponse struct {
	ID              int64                `json:"id"`
	CampaignID      *int64               `json:"campaignId,omitempty"`
	SourceLeadID    *string              `json:"sourceLeadId,omitempty"`
	Name            string               `json:"name"`
	Phone           string               `json:"phone"`
	Email           *string              `json:"email,omitempty"`
	Source          string               `json:"source"`
	SubSource       *string              `json:"subSource,omitempty"`
	Status          string               `json:"status"`
	AssignedAgentID *int64               `json:"assignedAgentId,omitempty"`
	AssignedAt      *time.Time           `json:"assignedAt,omitempty"`
	Extension       domain.ExtensionData `json:"extension"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

type IngestResponse struct {
	Outcome string       `json:"outcome"`
	Lead    LeadResponse `json:"lead"`
}

func ToLeadResponse(l domain.Lead) LeadResponse {
	ext := l.Extension
	if ext == nil {
		ext = domain.ExtensionData{}
	}
	return LeadResponse{
		ID:              l.ID,
		CampaignID:      l.CampaignID,
		SourceLeadID:    l.SourceLeadID,
		Name:            l.Name,
		Phone:           l.Phone,
		Email:           l.Email,
		Source:          l.Source,
		SubSource:       l.SubSource,
		Status:          l.Status,
		AssignedAgentID: l.AssignedAgentID,
		AssignedAt:      l.AssignedAt,
		Extension:       ext,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
}
