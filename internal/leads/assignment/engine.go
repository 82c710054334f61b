package assignment

import (
	"context"
	"errors"
	"time"

	"leadintake_backend/internal/leads/domain"
	"leadintake_backend/internal/leads/repository"
)

// Engine implements round-robin distribution. The cursor is derived from the
// most recently created assigned lead of the scope, so no pointer is stored.
type Engine struct {
	roster *Roster
	locker ScopeLocker
	now    func() time.Time
}

// NewEngine creates an Engine. A nil locker falls back to an in-process KeyedMutex.
func NewEngine(roster *Roster, locker ScopeLocker) *Engine {
	if locker == nil {
		locker = NewKeyedMutex()
	}
	return &Engine{roster: roster, locker: locker, now: time.Now}
}

// LockScope serializes assignment for one (tenant, campaign) scope.
// Callers hold it from cursor read until the assignment is durable.
func (e *Engine) LockScope(ctx context.Context, tenantID int64, campaignID *int64) (func(), error) {
	unlock, err := e.locker.Lock(ctx, ScopeKey(tenantID, campaignID))
	if err != nil {
		return nil, domain.Persistence("assignment.lock_scope", err)
	}
	return unlock, nil
}

// Scope resolves the campaign scope a new lead is stored and assigned under.
// assignable is false when the lead must stay unassigned.
func (e *Engine) Scope(ctx context.Context, tenantID int64, campaignID *int64) (scope *int64, assignable bool, err error) {
	return e.roster.Scope(ctx, tenantID, campaignID)
}

// Next returns the agent after the cursor's agent in the scope's roster.
// It returns nil without error when the roster is empty. With no cursor, or
// a cursor agent no longer on the roster, it restarts at the lowest ID.
func (e *Engine) Next(ctx context.Context, cursors repository.AssignmentStore, tenantID int64, campaignID *int64) (*domain.Agent, error) {
	roster, err := e.roster.Resolve(ctx, tenantID, campaignID)
	if err != nil {
		return nil, err
	}
	if len(roster) == 0 {
		return nil, nil
	}

	cursor, err := cursors.LatestAssignedInScope(ctx, tenantID, campaignID)
	if errors.Is(err, domain.ErrNotFound) {
		return &roster[0], nil
	}
	if err != nil {
		return nil, domain.Persistence("assignment.read_cursor", err)
	}

	i := domain.IndexOfAgent(roster, *cursor.AssignedAgentID)
	if i < 0 {
		return &roster[0], nil
	}
	return &roster[(i+1)%len(roster)], nil
}

// Assign picks the next agent and records it on leadID. It returns nil
// without error when the scope has no eligible agents. The caller must hold
// the scope lock and pass a store bound to the same transaction as the insert.
func (e *Engine) Assign(ctx context.Context, store repository.AssignmentStore, tenantID int64, campaignID *int64, leadID int64) (*domain.Agent, time.Time, error) {
	agent, err := e.Next(ctx, store, tenantID, campaignID)
	if err != nil || agent == nil {
		return nil, time.Time{}, err
	}

	at := e.now().UTC()
	ok, err := store.AssignLead(ctx, tenantID, leadID, agent.ID, at)
	if err != nil {
		return nil, time.Time{}, domain.Persistence("assignment.assign_lead", err)
	}
	if !ok {
		// Lead was already owned; never reassign.
		return nil, time.Time{}, nil
	}
	return agent, at, nil
}
