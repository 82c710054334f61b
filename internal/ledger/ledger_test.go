package ledger

import (
	"context"
	"strings"
	"testing"
)

func TestQueriesAreTenantScoped(t *testing.T) {
	if !strings.Contains(strings.ToLower(existsQuery), "tenant_id = $1 and message_id = $2") {
		t.Fatal("exists query must scope by tenant and message id")
	}
}

func TestRecordIsInsertIfAbsent(t *testing.T) {
	if !strings.Contains(strings.ToLower(recordQuery), "on conflict (tenant_id, message_id) do nothing") {
		t.Fatal("record must be idempotent at the database level")
	}
}

func TestMemoryLedger(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if ok, _ := m.Exists(ctx, 1, "<msg-1@mail>"); ok {
		t.Fatal("fresh ledger must be empty")
	}
	_ = m.Record(ctx, 1, "<msg-1@mail>", "magicbricks")
	_ = m.Record(ctx, 1, "<msg-1@mail>", "magicbricks")

	if ok, _ := m.Exists(ctx, 1, "<msg-1@mail>"); !ok {
		t.Fatal("expected message to be recorded")
	}
	if ok, _ := m.Exists(ctx, 2, "<msg-1@mail>"); ok {
		t.Fatal("ledger must be tenant scoped")
	}
	if m.Len() != 1 {
		t.Fatalf("expected one entry, got %d", m.Len())
	}
}
