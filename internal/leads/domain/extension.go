package domain

import (
	"encoding/json"
	"strconv"
)

// Well-known extension keys.
const (
	ExtPriority     = "priority"
	ExtMessage      = "message"
	ExtSubject      = "subject"
	ExtLocation     = "location"
	ExtBudget       = "budget"
	ExtPropertyType = "property_type"
	ExtRequirement  = "requirement"
	ExtCompany      = "company"
	ExtCity         = "city"
	ExtState        = "state"
	ExtFormFields   = "form_fields"
	ExtAdID         = "ad_id"
)

// ExtensionValue is one raw JSON value in ExtensionData.
type ExtensionValue = json.RawMessage

// ExtensionData carries source-specific attributes that do not have a column.
// Values are raw JSON so unknown shapes survive a round trip; typed accessors
// return ok=false instead of failing on a type mismatch.
type ExtensionData map[string]ExtensionValue

// SetString stores s under key. Empty strings are ignored.
func (e ExtensionData) SetString(key, s string) {
	if s == "" {
		return
	}
	raw, _ := json.Marshal(s)
	e[key] = raw
}

// Set stores any JSON-encodable value under key.
func (e ExtensionData) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	e[key] = raw
	return nil
}

// String returns the value under key when it is a JSON string or number.
func (e ExtensionData) String(key string) (string, bool) {
	raw, ok := e[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

// Int returns the value under key when it is an integral number or a numeric string.
func (e ExtensionData) Int(key string) (int64, bool) {
	raw, ok := e[key]
	if !ok {
		return 0, false
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if parsed, err := strconv.ParseInt(s, 10, 64); err == nil {
			return parsed, true
		}
	}
	return 0, false
}

// Bool returns the value under key when it is a JSON boolean.
func (e ExtensionData) Bool(key string) (bool, bool) {
	raw, ok := e[key]
	if !ok {
		return false, false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, false
	}
	return b, true
}

// Priority returns the well-known priority value, or 0 when absent or malformed.
func (e ExtensionData) Priority() int64 {
	p, _ := e.Int(ExtPriority)
	return p
}

// MergeMissing copies keys from other that are not present in e and reports
// whether anything was added.
func (e ExtensionData) MergeMissing(other ExtensionData) bool {
	changed := false
	for k, v := range other {
		if _, exists := e[k]; exists {
			continue
		}
		e[k] = v
		changed = true
	}
	return changed
}

// Clone returns a shallow copy. A nil receiver yields an empty map.
func (e ExtensionData) Clone() ExtensionData {
	out := make(ExtensionData, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}
