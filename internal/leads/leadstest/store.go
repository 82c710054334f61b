// Package leadstest provides an in-memory lead store for tests of the ingestion core.
package leadstest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"leadintake_backend/internal/leads/domain"
	"leadintake_backend/internal/leads/repository"
)

// ErrUnknownCampaign mirrors the leads.campaign_id foreign key: a lead may only
// reference a campaign that exists.
var ErrUnknownCampaign = errors.New("leadstest: campaign does not exist")

// Store is a concurrency-safe in-memory implementation of repository.LeadStore
// and repository.AgentDirectory. Failure hooks let tests inject store errors.
type Store struct {
	mu         sync.Mutex
	nextID     int64
	leads      map[int64]*domain.Lead
	agents     map[int64]domain.Agent
	campaigns  map[int64]domain.Campaign
	enrollment map[int64]map[int64]bool

	// Now stamps created_at on insert. Defaults to time.Now.
	Now func() time.Time

	FailInsert error
	FailFind   error
	FailUpdate error
	FailAgents error

	Inserts int
	Updates int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		leads:      make(map[int64]*domain.Lead),
		agents:     make(map[int64]domain.Agent),
		campaigns:  make(map[int64]domain.Campaign),
		enrollment: make(map[int64]map[int64]bool),
		Now:        time.Now,
	}
}

// AddAgent registers an agent.
func (s *Store) AddAgent(a domain.Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[a.ID] = a
}

// SetAgent replaces an agent, e.g. to suspend it mid-test.
func (s *Store) SetAgent(a domain.Agent) {
	s.AddAgent(a)
}

// AddCampaign registers a campaign and enrolls agentIDs in it.
func (s *Store) AddCampaign(c domain.Campaign, agentIDs ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaigns[c.ID] = c
	if s.enrollment[c.ID] == nil {
		s.enrollment[c.ID] = make(map[int64]bool)
	}
	for _, id := range agentIDs {
		s.enrollment[c.ID][id] = true
	}
}

// PutLead stores a lead as-is, assigning an ID when zero.
func (s *Store) PutLead(l domain.Lead) domain.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == 0 {
		s.nextID++
		l.ID = s.nextID
	} else if l.ID > s.nextID {
		s.nextID = l.ID
	}
	if l.Extension == nil {
		l.Extension = domain.ExtensionData{}
	}
	stored := l
	s.leads[l.ID] = &stored
	return l
}

// Leads returns copies of every stored lead ordered by ID.
func (s *Store) Leads() []domain.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Lead, 0, len(s.leads))
	for _, l := range s.leads {
		out = append(out, copyLead(l))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Lead returns a copy of the lead with id.
func (s *Store) Lead(id int64) (domain.Lead, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[id]
	if !ok {
		return domain.Lead{}, false
	}
	return copyLead(l), true
}

// InTx runs fn against the store itself. Writes made before a failure are not rolled back.
func (s *Store) InTx(_ context.Context, fn func(tx repository.LeadStore) error) error {
	return fn(s)
}

func (s *Store) FindByIdentifier(_ context.Context, tenantID int64, identifier string) (domain.Lead, error) {
	return s.find(func(l *domain.Lead) bool {
		return l.TenantID == tenantID && l.LeadIdentifier != nil && *l.LeadIdentifier == identifier
	})
}

func (s *Store) FindBySourceLeadID(_ context.Context, tenantID int64, sourceLeadID string) (domain.Lead, error) {
	return s.find(func(l *domain.Lead) bool {
		return l.TenantID == tenantID && l.SourceLeadID != nil && *l.SourceLeadID == sourceLeadID
	})
}

func (s *Store) FindByPhone(_ context.Context, tenantID int64, phone string) (domain.Lead, error) {
	return s.find(func(l *domain.Lead) bool {
		return l.TenantID == tenantID && l.Phone == phone
	})
}

func (s *Store) Insert(_ context.Context, lead *domain.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailInsert != nil {
		return s.FailInsert
	}
	if !s.campaignExists(lead.CampaignID) {
		return ErrUnknownCampaign
	}
	for _, existing := range s.leads {
		if existing.TenantID != lead.TenantID {
			continue
		}
		if sameKey(existing.LeadIdentifier, lead.LeadIdentifier) || sameKey(existing.SourceLeadID, lead.SourceLeadID) {
			return domain.ErrDuplicateLead
		}
	}

	s.nextID++
	now := s.Now()
	lead.ID = s.nextID
	lead.CreatedAt = now
	lead.UpdatedAt = now
	stored := copyLead(lead)
	s.leads[lead.ID] = &stored
	s.Inserts++
	return nil
}

func (s *Store) Update(_ context.Context, lead *domain.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpdate != nil {
		return s.FailUpdate
	}
	existing, ok := s.leads[lead.ID]
	if !ok || existing.TenantID != lead.TenantID {
		return domain.ErrNotFound
	}
	if !s.campaignExists(lead.CampaignID) {
		return ErrUnknownCampaign
	}
	existing.Name = lead.Name
	existing.Email = lead.Email
	existing.SubSource = lead.SubSource
	existing.CampaignID = lead.CampaignID
	existing.Extension = lead.Extension.Clone()
	existing.UpdatedAt = lead.UpdatedAt
	s.Updates++
	return nil
}

// campaignExists checks existence only; like the foreign key it ignores tenancy.
func (s *Store) campaignExists(id *int64) bool {
	if id == nil {
		return true
	}
	_, ok := s.campaigns[*id]
	return ok
}

func (s *Store) LatestAssignedInScope(_ context.Context, tenantID int64, campaignID *int64) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *domain.Lead
	for _, l := range s.leads {
		if l.TenantID != tenantID || l.AssignedAgentID == nil {
			continue
		}
		if campaignID != nil && (l.CampaignID == nil || *l.CampaignID != *campaignID) {
			continue
		}
		if best == nil || l.CreatedAt.After(best.CreatedAt) || (l.CreatedAt.Equal(best.CreatedAt) && l.ID > best.ID) {
			best = l
		}
	}
	if best == nil {
		return domain.Lead{}, domain.ErrNotFound
	}
	return copyLead(best), nil
}

func (s *Store) AssignLead(_ context.Context, tenantID, leadID, agentID int64, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[leadID]
	if !ok || l.TenantID != tenantID || l.AssignedAgentID != nil {
		return false, nil
	}
	agent := agentID
	when := at
	l.AssignedAgentID = &agent
	l.AssignedAt = &when
	l.UpdatedAt = at
	return true, nil
}

func (s *Store) ExistsSince(_ context.Context, tenantID int64, phone, source string, since time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailFind != nil {
		return false, s.FailFind
	}
	for _, l := range s.leads {
		if l.TenantID == tenantID && l.Phone == phone && l.Source == source && !l.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListEligibleAgents(_ context.Context, tenantID int64, campaignID *int64) ([]domain.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAgents != nil {
		return nil, s.FailAgents
	}
	out := make([]domain.Agent, 0)
	for _, a := range s.agents {
		if a.TenantID != tenantID || !a.Eligible() {
			continue
		}
		if campaignID != nil && !s.enrollment[*campaignID][a.ID] {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetCampaign(_ context.Context, tenantID, campaignID int64) (domain.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAgents != nil {
		return domain.Campaign{}, s.FailAgents
	}
	c, ok := s.campaigns[campaignID]
	if !ok || c.TenantID != tenantID {
		return domain.Campaign{}, domain.ErrCampaignNotFound
	}
	return c, nil
}

func (s *Store) find(match func(*domain.Lead) bool) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailFind != nil {
		return domain.Lead{}, s.FailFind
	}
	var best *domain.Lead
	for _, l := range s.leads {
		if match(l) && (best == nil || l.ID < best.ID) {
			best = l
		}
	}
	if best == nil {
		return domain.Lead{}, domain.ErrNotFound
	}
	return copyLead(best), nil
}

func sameKey(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

func copyLead(l *domain.Lead) domain.Lead {
	out := *l
	out.Extension = l.Extension.Clone()
	return out
}

var (
	_ repository.LeadStore      = (*Store)(nil)
	_ repository.AgentDirectory = (*Store)(nil)
	_ repository.Transactor     = (*Store)(nil)
)
