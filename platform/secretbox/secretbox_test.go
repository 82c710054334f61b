package secretbox

import (
	"errors"
	"testing"
)

func TestSealOpen(t *testing.T) {
	box, err := New("server-secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sealed, err := box.Seal("abcd efgh ijkl mnop")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if sealed == "abcd efgh ijkl mnop" {
		t.Fatal("sealed value must differ from plaintext")
	}

	opened, err := box.Open(sealed)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if opened != "abcd efgh ijkl mnop" {
		t.Fatalf("expected round trip, got %q", opened)
	}
}

func TestOpenWithDifferentSecretFails(t *testing.T) {
	a, _ := New("secret-a")
	b, _ := New("secret-b")

	sealed, err := a.Seal("app-password")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := b.Open(sealed); err == nil {
		t.Fatal("expected open with a different secret to fail")
	}
}

func TestEmptyValues(t *testing.T) {
	if _, err := New(""); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("expected ErrNoSecret, got %v", err)
	}

	box, _ := New("s")
	sealed, err := box.Seal("")
	if err != nil || sealed != "" {
		t.Fatalf("expected empty seal, got %q, %v", sealed, err)
	}
	opened, err := box.Open("")
	if err != nil || opened != "" {
		t.Fatalf("expected empty open, got %q, %v", opened, err)
	}
}
