// Package dedup finds the existing lead an incoming record belongs to.
package dedup

import (
	"context"
	"errors"
	"strings"

	"leadintake_backend/internal/leads/domain"
	"leadintake_backend/internal/leads/repository"
)

// Resolver applies the identity priority: lead identifier, then source lead
// ID, then exact raw phone. An empty key is skipped, and the first hit wins.
type Resolver struct {
	store repository.LeadFinder
}

// New creates a Resolver backed by store.
func New(store repository.LeadFinder) *Resolver {
	return &Resolver{store: store}
}

// Keys are the identity keys of one incoming record.
type Keys struct {
	LeadIdentifier string
	SourceLeadID   string
	Phone          string
}

// Resolve returns the matching lead and true, or nil and false when no key
// matches. Store failures are wrapped as domain.ErrPersistence.
func (r *Resolver) Resolve(ctx context.Context, tenantID int64, keys Keys) (*domain.Lead, bool, error) {
	lookups := []struct {
		key  string
		find func(context.Context, int64, string) (domain.Lead, error)
		op   string
	}{
		{strings.TrimSpace(keys.LeadIdentifier), r.store.FindByIdentifier, "dedup.by_identifier"},
		{strings.TrimSpace(keys.SourceLeadID), r.store.FindBySourceLeadID, "dedup.by_source_lead_id"},
		{keys.Phone, r.store.FindByPhone, "dedup.by_phone"},
	}

	for _, l := range lookups {
		if l.key == "" {
			continue
		}
		lead, err := l.find(ctx, tenantID, l.key)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, false, domain.Persistence(l.op, err)
		}
		return &lead, true, nil
	}

	return nil, false, nil
}
