// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used when no region is configured.
const DefaultRegion = "IN"

// canonicalLength is the number of trailing digits used as the matching key.
const canonicalLength = 10

// Normalize strips every non-digit. With at least ten digits it returns the
// last ten. A shorter result is returned as is. ok is false only when no
// digits remain. The result is a matching aid only and is never stored in
// place of the raw input.
func Normalize(raw string) (string, bool) {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	digits := b.String()
	if len(digits) >= canonicalLength {
		return digits[len(digits)-canonicalLength:], true
	}
	return digits, digits != ""
}

// HasDigits reports whether raw contains at least one digit.
func HasDigits(raw string) bool {
	return strings.ContainsAny(raw, "0123456789")
}

// NormalizeE164 formats a phone number to E.164 for the given region.
// If parsing fails, it returns the trimmed input.
func NormalizeE164(input, region string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}
	if region == "" {
		region = DefaultRegion
	}

	number, err := phonenumbers.Parse(trimmed, region)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}
