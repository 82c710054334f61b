package domain

import (
	"encoding/json"
	"testing"
)

func TestExtensionDataTypedAccessors(t *testing.T) {
	var ext ExtensionData
	if err := json.Unmarshal([]byte(`{"priority":"3","budget":7500000,"hot":true,"form_fields":{"a":"b"}}`), &ext); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got := ext.Priority(); got != 3 {
		t.Fatalf("expected priority 3 from numeric string, got %d", got)
	}
	if got, ok := ext.Int(ExtBudget); !ok || got != 7500000 {
		t.Fatalf("expected budget 7500000, got %d (%v)", got, ok)
	}
	if got, ok := ext.String(ExtBudget); !ok || got != "7500000" {
		t.Fatalf("expected budget as string, got %q (%v)", got, ok)
	}
	if got, ok := ext.Bool("hot"); !ok || !got {
		t.Fatalf("expected hot=true, got %v (%v)", got, ok)
	}
	if _, ok := ext.String(ExtFormFields); ok {
		t.Fatal("object value must not read as string")
	}
	if _, ok := ext.Bool("missing"); ok {
		t.Fatal("missing key must report ok=false")
	}
}

func TestExtensionDataMergeMissingKeepsExisting(t *testing.T) {
	ext := ExtensionData{}
	ext.SetString(ExtLocation, "Pune")

	incoming := ExtensionData{}
	incoming.SetString(ExtLocation, "Mumbai")
	incoming.SetString(ExtBudget, "1 Cr")

	if !ext.MergeMissing(incoming) {
		t.Fatal("expected merge to report a change")
	}
	if loc, _ := ext.String(ExtLocation); loc != "Pune" {
		t.Fatalf("existing key must win, got %q", loc)
	}
	if budget, _ := ext.String(ExtBudget); budget != "1 Cr" {
		t.Fatalf("expected new key merged, got %q", budget)
	}
	if ext.MergeMissing(incoming) {
		t.Fatal("second merge must be a no-op")
	}
}

func TestSetStringIgnoresEmpty(t *testing.T) {
	ext := ExtensionData{}
	ext.SetString(ExtMessage, "")
	if len(ext) != 0 {
		t.Fatalf("expected empty map, got %v", ext)
	}
}
