package webhook

import (
	"regexp"
	"sort"
	"strings"

	"leadintake_backend/internal/leads/domain"
)

// ExtractRecord maps a flat form submission onto a lead record by matching
// common field labels. Unmatched fields are kept under form_fields.
func ExtractRecord(data map[string]string) domain.NormalizedLeadRecord {
	var (
		rec       = domain.NormalizedLeadRecord{Extension: domain.ExtensionData{}}
		firstName string
		lastName  string
		extra     = make(map[string]string)
	)

	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := strings.TrimSpace(data[key])
		if value == "" {
			continue
		}
		k := strings.ToLower(strings.TrimSpace(key))

		switch {
		case matchesAny(k, firstNamePatterns):
			firstName = value
		case matchesAny(k, lastNamePatterns):
			lastName = value
		case matchesAny(k, fullNamePatterns):
			rec.Name = value
		case matchesAny(k, emailPatterns):
			if emailRegex.MatchString(value) {
				rec.Email = value
			}
		case matchesAny(k, phonePatterns):
			rec.Phone = cleanPhone(value)
		case matchesAny(k, leadIDPatterns):
			rec.SourceLeadID = value
		case matchesAny(k, formIDPatterns):
			rec.FormID = value
		case matchesAny(k, subSourcePatterns):
			rec.SubSource = value
		case matchesAny(k, messagePatterns):
			rec.Extension.SetString(domain.ExtMessage, value)
		case matchesAny(k, cityPatterns):
			rec.Extension.SetString(domain.ExtCity, value)
		case matchesAny(k, locationPatterns):
			rec.Extension.SetString(domain.ExtLocation, value)
		case matchesAny(k, budgetPatterns):
			rec.Extension.SetString(domain.ExtBudget, value)
		case matchesAny(k, propertyTypePatterns):
			rec.Extension.SetString(domain.ExtPropertyType, value)
		case matchesAny(k, messageIDPatterns):
			// Carried by the envelope, not the lead.
		default:
			extra[key] = value
		}
	}

	if rec.Name == "" {
		rec.Name = strings.TrimSpace(firstName + " " + lastName)
	}
	if len(extra) > 0 {
		_ = rec.Extension.Set(domain.ExtFormFields, extra)
	}
	return rec
}

var (
	firstNamePatterns    = []string{"first_name", "firstname", "given_name", "fname"}
	lastNamePatterns     = []string{"last_name", "lastname", "family_name", "surname", "lname"}
	fullNamePatterns     = []string{"name", "full_name", "your_name", "customer_name", "buyer_name"}
	emailPatterns        = []string{"email", "e-mail", "email_address", "mail"}
	phonePatterns        = []string{"phone", "tel", "telephone", "phone_number", "mobile", "mobile_number", "contact_number", "whatsapp"}
	leadIDPatterns       = []string{"lead_id", "leadid", "source_lead_id", "reference", "ref_id"}
	formIDPatterns       = []string{"form_id", "formid", "form_name"}
	subSourcePatterns    = []string{"campaign", "campaign_name", "utm_campaign", "utm_source", "sub_source"}
	messagePatterns      = []string{"message", "comment", "comments", "notes", "description", "query", "question"}
	cityPatterns         = []string{"city", "town"}
	locationPatterns     = []string{"location", "locality", "address", "area"}
	budgetPatterns       = []string{"budget", "price_range"}
	propertyTypePatterns = []string{"property_type", "propertytype", "project_type", "unit_type"}
	messageIDPatterns    = []string{"message_id", "messageid", "submission_id"}
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

var labelNormalizer = strings.NewReplacer("-", "", "_", "", " ", "")

func matchesAny(label string, patterns []string) bool {
	normalized := labelNormalizer.Replace(label)
	for _, p := range patterns {
		if normalized == labelNormalizer.Replace(p) {
			return true
		}
	}
	return false
}

// cleanPhone drops formatting but keeps the caller's digits and leading +.
func cleanPhone(value string) string {
	return strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '+' {
			return r
		}
		return -1
	}, value)
}

// submissionMessageID returns the caller's idempotency key, if any.
func submissionMessageID(data map[string]string) string {
	for key, value := range data {
		if matchesAny(strings.ToLower(strings.TrimSpace(key)), messageIDPatterns) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
