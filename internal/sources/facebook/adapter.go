package facebook

import (
	"context"
	"encoding/json"
	"fmt"

	"leadintake_backend/internal/leads/domain"
	"leadintake_backend/internal/sources"
)

// GraphLead is the Graph API lead object.
type GraphLead struct {
	ID           string      `json:"id"`
	CreatedTime  string      `json:"created_time"`
	AdID         string      `json:"ad_id"`
	FormID       string      `json:"form_id"`
	CampaignName string      `json:"campaign_name"`
	Platform     string      `json:"platform"`
	FieldData    []FieldData `json:"field_data"`
}

type FieldData struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Answers maps field names to their first value.
func (l GraphLead) Answers() map[string]string {
	out := make(map[string]string, len(l.FieldData))
	for _, f := range l.FieldData {
		if len(f.Values) > 0 {
			out[f.Name] = f.Values[0]
		}
	}
	return out
}

// Adapter converts Graph lead objects into records.
type Adapter struct{}

func (Adapter) Source() string { return domain.SourceFacebook }

func (Adapter) Parse(_ context.Context, env sources.Envelope) ([]sources.Inbound, error) {
	var lead GraphLead
	if err := json.Unmarshal(env.Body, &lead); err != nil {
		return nil, fmt.Errorf("decode graph lead: %w", err)
	}
	if lead.ID == "" {
		return nil, fmt.Errorf("graph lead without id: %w", sources.ErrNotALead)
	}

	answers := lead.Answers()
	name := answers["full_name"]
	if name == "" {
		name = answers["name"]
	}

	rec := domain.NormalizedLeadRecord{
		Name:         name,
		Phone:        answers["phone_number"],
		Email:        answers["email"],
		SubSource:    lead.CampaignName,
		SourceLeadID: lead.ID,
		FormID:       lead.FormID,
		Extension:    domain.ExtensionData{},
	}
	if err := rec.Extension.Set(domain.ExtFormFields, answers); err != nil {
		return nil, err
	}
	rec.Extension.SetString(domain.ExtAdID, lead.AdID)
	rec.Extension.SetString("platform", lead.Platform)

	messageID := env.MessageID
	if messageID == "" {
		messageID = MessageID(lead.ID)
	}
	return []sources.Inbound{{MessageID: messageID, Record: rec}}, nil
}

var _ sources.Adapter = Adapter{}
