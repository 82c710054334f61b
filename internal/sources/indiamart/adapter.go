package indiamart

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"leadintake_backend/internal/leads/domain"
	"leadintake_backend/internal/sources"
)

// Inquiry is one RESPONSE item.
type Inquiry struct {
	UniqueQueryID flexString `json:"UNIQUE_QUERY_ID"`
	QueryType     string     `json:"QUERY_TYPE"`
	SenderName    string     `json:"SENDER_NAME"`
	SenderMobile  string     `json:"SENDER_MOBILE"`
	SenderEmail   string     `json:"SENDER_EMAIL"`
	Subject       string     `json:"SUBJECT"`
	QueryMessage  string     `json:"QUERY_MESSAGE"`
	SenderCompany string     `json:"SENDER_COMPANY"`
	SenderCity    string     `json:"SENDER_CITY"`
	SenderState   string     `json:"SENDER_STATE"`
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var out string
		if err := json.Unmarshal(b, &out); err != nil {
			return err
		}
		*f = flexString(out)
		return nil
	}
	*f = flexString(s)
	return nil
}

// SourceLeadID is the stored identity of an inquiry, e.g. IM_12345.
func SourceLeadID(queryID string) string {
	return "IM_" + queryID
}

// Envelopes wraps raw inquiries so each carries its ledger key.
func Envelopes(items []json.RawMessage) ([]sources.Envelope, error) {
	out := make([]sources.Envelope, 0, len(items))
	for _, raw := range items {
		var q Inquiry
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, fmt.Errorf("decode indiamart inquiry: %w", err)
		}
		env := sources.Envelope{Body: raw}
		if q.UniqueQueryID != "" {
			env.MessageID = SourceLeadID(string(q.UniqueQueryID))
		}
		out = append(out, env)
	}
	return out, nil
}

// Adapter converts inquiries into records.
type Adapter struct{}

func (Adapter) Source() string { return domain.SourceIndiaMART }

func (Adapter) Parse(_ context.Context, env sources.Envelope) ([]sources.Inbound, error) {
	var q Inquiry
	if err := json.Unmarshal(env.Body, &q); err != nil {
		return nil, fmt.Errorf("decode indiamart inquiry: %w", err)
	}
	if q.UniqueQueryID == "" {
		return nil, fmt.Errorf("inquiry without UNIQUE_QUERY_ID: %w", sources.ErrNotALead)
	}

	id := SourceLeadID(string(q.UniqueQueryID))
	rec := domain.NormalizedLeadRecord{
		Name:         q.SenderName,
		Phone:        q.SenderMobile,
		Email:        q.SenderEmail,
		SourceLeadID: id,
		Extension:    domain.ExtensionData{},
	}
	rec.Extension.SetString(domain.ExtSubject, q.Subject)
	rec.Extension.SetString(domain.ExtMessage, q.QueryMessage)
	rec.Extension.SetString(domain.ExtCompany, q.SenderCompany)
	rec.Extension.SetString(domain.ExtCity, q.SenderCity)
	rec.Extension.SetString(domain.ExtState, q.SenderState)
	rec.Extension.SetString("indiamart_id", string(q.UniqueQueryID))

	return []sources.Inbound{{MessageID: id, Record: rec}}, nil
}

var _ sources.Adapter = Adapter{}
