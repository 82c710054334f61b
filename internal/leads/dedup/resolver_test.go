package dedup

import (
	"context"
	"errors"
	"testing"

	"leadintake_backend/internal/leads/domain"
	"leadintake_backend/internal/leads/leadstest"
)

func seed(store *leadstest.Store) (byIdentifier, bySource, byPhone domain.Lead) {
	byIdentifier = store.PutLead(domain.Lead{TenantID: 1, Phone: "111", LeadIdentifier: domain.StringPtr("ident-1"), Name: "A"})
	bySource = store.PutLead(domain.Lead{TenantID: 1, Phone: "222", SourceLeadID: domain.StringPtr("src-1"), Name: "B"})
	byPhone = store.PutLead(domain.Lead{TenantID: 1, Phone: "+91 98765 43210", Name: "C"})
	return
}

func TestResolvePriority(t *testing.T) {
	store := leadstest.NewStore()
	ident, source, phone := seed(store)
	r := New(store)
	ctx := context.Background()

	cases := []struct {
		name string
		keys Keys
		want int64
	}{
		{"identifier wins over source and phone", Keys{LeadIdentifier: "ident-1", SourceLeadID: "src-1", Phone: "+91 98765 43210"}, ident.ID},
		{"source wins over phone", Keys{LeadIdentifier: "missing", SourceLeadID: "src-1", Phone: "+91 98765 43210"}, source.ID},
		{"phone as last resort", Keys{SourceLeadID: "missing", Phone: "+91 98765 43210"}, phone.ID},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lead, found, err := r.Resolve(ctx, 1, tc.keys)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !found || lead.ID != tc.want {
				t.Fatalf("expected lead %d, got %+v (found=%v)", tc.want, lead, found)
			}
		})
	}
}

func TestResolvePhoneIsExactRawMatch(t *testing.T) {
	store := leadstest.NewStore()
	seed(store)

	// Same canonical digits, different formatting: no match.
	_, found, err := New(store).Resolve(context.Background(), 1, Keys{Phone: "9876543210"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatal("phone match must compare the raw stored value")
	}
}

func TestResolveIsTenantScoped(t *testing.T) {
	store := leadstest.NewStore()
	seed(store)

	_, found, err := New(store).Resolve(context.Background(), 2, Keys{LeadIdentifier: "ident-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatal("lead from another tenant must not match")
	}
}

func TestResolveNoKeys(t *testing.T) {
	lead, found, err := New(leadstest.NewStore()).Resolve(context.Background(), 1, Keys{})
	if err != nil || found || lead != nil {
		t.Fatalf("expected empty miss, got %+v %v %v", lead, found, err)
	}
}

func TestResolveWrapsStoreFailure(t *testing.T) {
	store := leadstest.NewStore()
	store.FailFind = errors.New("connection reset")

	_, _, err := New(store).Resolve(context.Background(), 1, Keys{Phone: "123"})
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
}
