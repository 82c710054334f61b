package assignment

import (
	"context"
	"errors"
	"testing"
	"time"

	"leadintake_backend/internal/leads/domain"
	"leadintake_backend/internal/leads/leadstest"
	"leadintake_backend/platform/logger"
)

func newEngine(store *leadstest.Store, policy FallbackPolicy) *Engine {
	return NewEngine(NewRoster(store, policy, logger.Nop()), NewKeyedMutex())
}

func addAgents(store *leadstest.Store, tenantID int64, ids ...int64) {
	for _, id := range ids {
		store.AddAgent(domain.Agent{ID: id, TenantID: tenantID, Name: "agent", Active: true})
	}
}

// assignNew inserts an unassigned lead and runs the engine on it.
func assignNew(t *testing.T, e *Engine, store *leadstest.Store, tenantID int64, campaignID *int64) *domain.Agent {
	t.Helper()
	lead := &domain.Lead{TenantID: tenantID, CampaignID: campaignID, Status: domain.StatusNew, Source: "test"}
	if err := store.Insert(context.Background(), lead); err != nil {
		t.Fatalf("insert: %v", err)
	}
	agent, _, err := e.Assign(context.Background(), store, tenantID, campaignID, lead.ID)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	return agent
}

func steppingClock() func() time.Time {
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func TestRoundRobinCyclesInIDOrder(t *testing.T) {
	store := leadstest.NewStore()
	store.Now = steppingClock()
	addAgents(store, 1, 30, 10, 20)
	e := newEngine(store, FallbackWiden)

	want := []int64{10, 20, 30, 10}
	for i, id := range want {
		agent := assignNew(t, e, store, 1, nil)
		if agent == nil || agent.ID != id {
			t.Fatalf("lead %d: expected agent %d, got %+v", i+1, id, agent)
		}
	}
}

func TestCursorTieBreaksOnID(t *testing.T) {
	store := leadstest.NewStore()
	frozen := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	store.Now = func() time.Time { return frozen }
	addAgents(store, 1, 1, 2, 3)
	e := newEngine(store, FallbackWiden)

	want := []int64{1, 2, 3, 1}
	for i, id := range want {
		agent := assignNew(t, e, store, 1, nil)
		if agent == nil || agent.ID != id {
			t.Fatalf("lead %d with identical timestamps: expected agent %d, got %+v", i+1, id, agent)
		}
	}
}

func TestStaleCursorRestartsAtFirstAgent(t *testing.T) {
	store := leadstest.NewStore()
	store.Now = steppingClock()
	addAgents(store, 1, 1, 2, 3)
	e := newEngine(store, FallbackWiden)

	assignNew(t, e, store, 1, nil) // 1
	assignNew(t, e, store, 1, nil) // 2

	store.SetAgent(domain.Agent{ID: 2, TenantID: 1, Active: true, Suspended: true})

	agent := assignNew(t, e, store, 1, nil)
	if agent == nil || agent.ID != 1 {
		t.Fatalf("expected restart at agent 1, got %+v", agent)
	}
}

func TestNoEligibleAgentsLeavesLeadUnassigned(t *testing.T) {
	store := leadstest.NewStore()
	store.AddAgent(domain.Agent{ID: 1, TenantID: 1, Active: false})
	e := newEngine(store, FallbackWiden)

	if agent := assignNew(t, e, store, 1, nil); agent != nil {
		t.Fatalf("expected no agent, got %+v", agent)
	}
	for _, l := range store.Leads() {
		if l.IsAssigned() {
			t.Fatalf("lead %d must stay unassigned", l.ID)
		}
	}
}

func TestCampaignScopesAreIndependent(t *testing.T) {
	store := leadstest.NewStore()
	store.Now = steppingClock()
	addAgents(store, 1, 1, 2, 3, 4)
	store.AddCampaign(domain.Campaign{ID: 100, TenantID: 1, Status: domain.CampaignActive}, 1, 2)
	store.AddCampaign(domain.Campaign{ID: 200, TenantID: 1, Status: domain.CampaignActive}, 3, 4)
	e := newEngine(store, FallbackWiden)

	c100, c200 := int64(100), int64(200)
	sequence := []struct {
		campaign *int64
		want     int64
	}{
		{&c100, 1}, {&c200, 3}, {&c100, 2}, {&c200, 4}, {&c100, 1},
	}
	for i, step := range sequence {
		agent := assignNew(t, e, store, 1, step.campaign)
		if agent == nil || agent.ID != step.want {
			t.Fatalf("step %d: expected agent %d, got %+v", i, step.want, agent)
		}
	}
}

func TestCampaignWithoutEligibleAgentsDoesNotBorrow(t *testing.T) {
	store := leadstest.NewStore()
	addAgents(store, 1, 1, 2)
	store.AddCampaign(domain.Campaign{ID: 100, TenantID: 1, Status: domain.CampaignActive})
	e := newEngine(store, FallbackWiden)

	c := int64(100)
	if agent := assignNew(t, e, store, 1, &c); agent != nil {
		t.Fatalf("expected campaign with no agents to skip assignment, got %+v", agent)
	}
}

// assignInScope runs the engine for campaignID on a lead stored without one,
// the way a campaign deleted after scope resolution reaches Assign.
func assignInScope(t *testing.T, e *Engine, store *leadstest.Store, tenantID int64, campaignID *int64) *domain.Agent {
	t.Helper()
	lead := &domain.Lead{TenantID: tenantID, Status: domain.StatusNew, Source: "test"}
	if err := store.Insert(context.Background(), lead); err != nil {
		t.Fatalf("insert: %v", err)
	}
	agent, _, err := e.Assign(context.Background(), store, tenantID, campaignID, lead.ID)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	return agent
}

func TestMissingCampaignFallbackPolicies(t *testing.T) {
	missing := int64(999)

	store := leadstest.NewStore()
	addAgents(store, 1, 5)
	if agent := assignInScope(t, newEngine(store, FallbackWiden), store, 1, &missing); agent == nil || agent.ID != 5 {
		t.Fatalf("widen policy: expected tenant-wide agent 5, got %+v", agent)
	}

	strictStore := leadstest.NewStore()
	addAgents(strictStore, 1, 5)
	if agent := assignInScope(t, newEngine(strictStore, FallbackStrict), strictStore, 1, &missing); agent != nil {
		t.Fatalf("strict policy: expected no agent, got %+v", agent)
	}
}

func TestScopeDropsCampaignTheTenantDoesNotOwn(t *testing.T) {
	store := leadstest.NewStore()
	store.AddCampaign(domain.Campaign{ID: 10, TenantID: 1})
	store.AddCampaign(domain.Campaign{ID: 100, TenantID: 2})
	own, foreign, missing := int64(10), int64(100), int64(999)

	tests := []struct {
		name           string
		policy         FallbackPolicy
		campaignID     *int64
		wantScope      *int64
		wantAssignable bool
	}{
		{"no campaign", FallbackWiden, nil, nil, true},
		{"owned campaign", FallbackStrict, &own, &own, true},
		{"missing campaign widens", FallbackWiden, &missing, nil, true},
		{"missing campaign strict", FallbackStrict, &missing, nil, false},
		{"other tenant campaign", FallbackWiden, &foreign, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope, assignable, err := newEngine(store, tt.policy).Scope(context.Background(), 1, tt.campaignID)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if assignable != tt.wantAssignable {
				t.Fatalf("assignable = %v, want %v", assignable, tt.wantAssignable)
			}
			switch {
			case tt.wantScope == nil && scope != nil:
				t.Fatalf("expected tenant-wide scope, got campaign %d", *scope)
			case tt.wantScope != nil && (scope == nil || *scope != *tt.wantScope):
				t.Fatalf("expected campaign %d, got %v", *tt.wantScope, scope)
			}
		})
	}
}

func TestScopeLookupFailureIsPersistenceError(t *testing.T) {
	store := leadstest.NewStore()
	store.FailAgents = errors.New("db down")
	c := int64(10)

	_, _, err := newEngine(store, FallbackWiden).Scope(context.Background(), 1, &c)
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
}

func TestCampaignFromOtherTenantCountsAsMissing(t *testing.T) {
	store := leadstest.NewStore()
	addAgents(store, 1, 1)
	addAgents(store, 2, 2)
	store.AddCampaign(domain.Campaign{ID: 100, TenantID: 2}, 2)

	c := int64(100)
	agent := assignNew(t, newEngine(store, FallbackWiden), store, 1, &c)
	if agent == nil || agent.ID != 1 {
		t.Fatalf("expected tenant 1 agent via fallback, got %+v", agent)
	}
}

func TestAssignNeverOverwritesExistingAgent(t *testing.T) {
	store := leadstest.NewStore()
	addAgents(store, 1, 1, 2)
	owner := int64(2)
	lead := store.PutLead(domain.Lead{TenantID: 1, AssignedAgentID: &owner, CreatedAt: time.Now()})

	agent, _, err := newEngine(store, FallbackWiden).Assign(context.Background(), store, 1, nil, lead.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if agent != nil {
		t.Fatalf("expected no new assignment, got %+v", agent)
	}
	stored, _ := store.Lead(lead.ID)
	if *stored.AssignedAgentID != 2 {
		t.Fatalf("assignment overwritten: %d", *stored.AssignedAgentID)
	}
}

func TestRosterFailureIsPersistenceError(t *testing.T) {
	store := leadstest.NewStore()
	store.FailAgents = errors.New("db down")

	_, err := newEngine(store, FallbackWiden).Next(context.Background(), store, 1, nil)
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
}
