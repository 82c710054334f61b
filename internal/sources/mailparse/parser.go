package mailparse

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"leadintake_backend/internal/leads/domain"
	"leadintake_backend/internal/sources"
)

var tenDigits = regexp.MustCompile(`[0-9]{10}`)

// extensionKeys maps profile keys onto extension keys where they differ.
var extensionKeys = map[string]string{
	"property_type": domain.ExtPropertyType,
	"location":      domain.ExtLocation,
	"budget":        domain.ExtBudget,
	"requirement":   domain.ExtRequirement,
}

// Adapter parses one marketplace's emails.
type Adapter struct {
	profile Profile
}

// NewAdapter wraps a loaded profile.
func NewAdapter(p Profile) *Adapter {
	return &Adapter{profile: p}
}

// NewAdapters builds an adapter for every built-in profile.
func NewAdapters() ([]*Adapter, error) {
	profiles, err := DefaultProfiles()
	if err != nil {
		return nil, err
	}
	out := make([]*Adapter, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, NewAdapter(p))
	}
	return out, nil
}

func (a *Adapter) Source() string { return a.profile.Source }

// SameDayGuard is on for every marketplace; they re-send inquiries.
func (a *Adapter) SameDayGuard() bool { return true }

// SearchCriteria is the IMAP search for this marketplace.
func (a *Adapter) SearchCriteria() string { return a.profile.Search }

func (a *Adapter) Parse(_ context.Context, env sources.Envelope) ([]sources.Inbound, error) {
	body := string(env.Body)
	if env.HTML {
		body = HTMLToText(body)
	}

	rec, err := a.ParseBody(body)
	if err != nil {
		return nil, err
	}
	rec.Extension.SetString(domain.ExtSubject, strings.TrimSpace(env.Subject))

	return []sources.Inbound{{MessageID: env.MessageID, Record: rec}}, nil
}

// ParseBody extracts a record from a plain-text body.
func (a *Adapter) ParseBody(body string) (domain.NormalizedLeadRecord, error) {
	text := strings.TrimSpace(strings.ReplaceAll(body, "\r", ""))

	if !a.hasMarker(text) {
		return domain.NormalizedLeadRecord{}, fmt.Errorf("%s: %w", a.profile.Source, sources.ErrNotALead)
	}

	rec := domain.NormalizedLeadRecord{Extension: domain.ExtensionData{}}
	for _, f := range a.profile.Fields {
		m := f.re.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		value := strings.TrimSpace(m[1])

		if f.Key == "phone" {
			rec.Phone = lastTen(value)
			continue
		}
		if a.profile.SplitPipes {
			value = strings.TrimSpace(strings.SplitN(value, "|", 2)[0])
		}

		switch f.Key {
		case "name":
			rec.Name = value
		case "email":
			rec.Email = value
		default:
			key := f.Key
			if mapped, ok := extensionKeys[key]; ok {
				key = mapped
			}
			rec.Extension.SetString(key, value)
		}
	}

	if rec.Phone == "" && a.profile.PhoneFallback {
		rec.Phone = tenDigits.FindString(text)
	}
	if rec.Phone == "" && rec.Email == "" {
		return domain.NormalizedLeadRecord{}, fmt.Errorf("%s: no phone or email: %w", a.profile.Source, sources.ErrNotALead)
	}
	return rec, nil
}

func (a *Adapter) hasMarker(text string) bool {
	if len(a.profile.Markers) == 0 {
		return true
	}
	for _, m := range a.profile.Markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

func lastTen(digits string) string {
	digits = strings.NewReplacer("-", "", " ", "").Replace(digits)
	if len(digits) > 10 {
		return digits[len(digits)-10:]
	}
	return digits
}

var _ sources.Adapter = (*Adapter)(nil)
