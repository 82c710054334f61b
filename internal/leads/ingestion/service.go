// Package ingestion turns normalized records from any source into leads:
// it deduplicates, creates, assigns and notifies.
package ingestion

import (
	"context"
	"errors"
	"time"

	"leadintake_backend/internal/events"
	"leadintake_backend/internal/leads/assignment"
	"leadintake_backend/internal/leads/dedup"
	"leadintake_backend/internal/leads/domain"
	"leadintake_backend/internal/leads/repository"
	"leadintake_backend/platform/logger"
	"leadintake_backend/platform/phone"
	"leadintake_backend/platform/sanitize"
)

// Notifier tells an agent about a newly assigned lead. Delivery is best
// effort, so implementations log their own failures.
type Notifier interface {
	Notify(ctx context.Context, agent domain.Agent, lead domain.Lead)
}

// Store is the persistence surface the service needs.
type Store interface {
	repository.LeadStore
	repository.Transactor
}

// Service is the single entry point every source adapter calls.
type Service struct {
	store    Store
	resolver *dedup.Resolver
	engine   *assignment.Engine
	notifier Notifier
	bus      events.Bus
	log      *logger.Logger
	now      func() time.Time
}

// New creates a Service. notifier and bus may be nil.
func New(store Store, engine *assignment.Engine, notifier Notifier, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		resolver: dedup.New(store),
		engine:   engine,
		notifier: notifier,
		bus:      bus,
		log:      log,
		now:      time.Now,
	}
}

// Ingest reconciles record with the tenant's existing leads. A match is
// updated in place and keeps its agent. A new lead is created with status
// "new" and assigned round-robin within (tenantID, campaignID). A lead left
// unassigned because no agent is eligible is returned without error.
func (s *Service) Ingest(ctx context.Context, tenantID int64, source string, record domain.NormalizedLeadRecord, campaignID *int64) (*domain.Lead, error) {
	result, err := s.IngestWithResult(ctx, tenantID, source, record, campaignID)
	if err != nil {
		return nil, err
	}
	return result.Lead, nil
}

// IngestWithResult is Ingest plus the outcome classification.
func (s *Service) IngestWithResult(ctx context.Context, tenantID int64, source string, record domain.NormalizedLeadRecord, campaignID *int64) (domain.IngestResult, error) {
	ctx = logger.ContextWithSource(logger.ContextWithTenant(ctx, tenantID), source)
	rec := clean(record)

	if rec.Phone == "" && rec.Email == "" {
		return domain.IngestResult{}, domain.InvalidRecord("ingest")
	}
	keys := dedup.Keys{
		LeadIdentifier: rec.LeadIdentifier,
		SourceLeadID:   rec.SourceLeadID,
		Phone:          rec.Phone,
	}

	existing, found, err := s.resolver.Resolve(ctx, tenantID, keys)
	if err != nil {
		return domain.IngestResult{}, err
	}
	if found {
		return s.mergeExisting(ctx, existing, source, rec, campaignID)
	}

	result, err := s.createAndAssign(ctx, tenantID, source, rec, campaignID)
	if errors.Is(err, domain.ErrDuplicateLead) {
		// A concurrent ingestion created the same lead between lookup and insert.
		existing, found, rerr := s.resolver.Resolve(ctx, tenantID, keys)
		if rerr != nil {
			return domain.IngestResult{}, rerr
		}
		if !found {
			return domain.IngestResult{}, domain.Persistence("ingest.insert", err)
		}
		return s.mergeExisting(ctx, existing, source, rec, campaignID)
	}
	return result, err
}

func (s *Service) mergeExisting(ctx context.Context, lead *domain.Lead, source string, rec domain.NormalizedLeadRecord, campaignID *int64) (domain.IngestResult, error) {
	if rec.Name != "" && rec.Name != domain.UnknownName {
		lead.Name = rec.Name
	}
	if lead.Email == nil && rec.Email != "" {
		lead.Email = domain.StringPtr(rec.Email)
	}
	if lead.SubSource == nil && rec.SubSource != "" {
		lead.SubSource = domain.StringPtr(rec.SubSource)
	}
	if lead.CampaignID == nil && campaignID != nil {
		scope, _, err := s.engine.Scope(ctx, lead.TenantID, campaignID)
		if err != nil {
			return domain.IngestResult{}, err
		}
		lead.CampaignID = scope
	}
	if lead.Extension == nil {
		lead.Extension = domain.ExtensionData{}
	}
	lead.Extension.MergeMissing(rec.Extension)
	lead.UpdatedAt = s.now().UTC()

	if err := s.store.Update(ctx, lead); err != nil {
		return domain.IngestResult{}, domain.Persistence("ingest.update", err)
	}

	s.log.LeadIngested(lead.TenantID, lead.ID, source, string(domain.OutcomeUpdated))
	s.publish(ctx, events.LeadIngested{
		BaseEvent: events.NewBaseEvent(),
		TenantID:  lead.TenantID,
		LeadID:    lead.ID,
		Source:    source,
		Created:   false,
	})
	return domain.IngestResult{Lead: lead, Outcome: domain.OutcomeUpdated}, nil
}

func (s *Service) createAndAssign(ctx context.Context, tenantID int64, source string, rec domain.NormalizedLeadRecord, requested *int64) (domain.IngestResult, error) {
	// campaignID is the tenant-owned scope; an unknown campaign never reaches the row.
	campaignID, assignable, err := s.engine.Scope(ctx, tenantID, requested)
	if err != nil {
		return domain.IngestResult{}, err
	}

	lead := &domain.Lead{
		TenantID:       tenantID,
		CampaignID:     campaignID,
		SourceLeadID:   domain.StringPtr(rec.SourceLeadID),
		LeadIdentifier: domain.StringPtr(rec.LeadIdentifier),
		FormID:         domain.StringPtr(rec.FormID),
		Phone:          rec.Phone,
		Name:           rec.Name,
		Email:          domain.StringPtr(rec.Email),
		Source:         source,
		SubSource:      domain.StringPtr(rec.SubSource),
		Status:         domain.StatusNew,
		Extension:      rec.Extension.Clone(),
	}
	if lead.Name == "" {
		lead.Name = domain.UnknownName
	}

	unlock, err := s.engine.LockScope(ctx, tenantID, campaignID)
	if err != nil {
		return domain.IngestResult{}, err
	}
	defer unlock()

	var (
		agent      *domain.Agent
		assignedAt time.Time
	)
	err = s.store.InTx(ctx, func(tx repository.LeadStore) error {
		if err := tx.Insert(ctx, lead); err != nil {
			return err
		}
		if !assignable {
			return nil
		}
		var aerr error
		agent, assignedAt, aerr = s.engine.Assign(ctx, tx, tenantID, campaignID, lead.ID)
		return aerr
	})
	if errors.Is(err, domain.ErrDuplicateLead) {
		return domain.IngestResult{}, err
	}
	if errors.Is(err, domain.ErrPersistence) {
		return domain.IngestResult{}, err
	}
	if err != nil {
		return domain.IngestResult{}, domain.Persistence("ingest.create", err)
	}

	s.log.LeadIngested(tenantID, lead.ID, source, string(domain.OutcomeCreated))
	s.publish(ctx, events.LeadIngested{
		BaseEvent: events.NewBaseEvent(),
		TenantID:  tenantID,
		LeadID:    lead.ID,
		Source:    source,
		Created:   true,
	})

	if agent == nil {
		s.log.AssignmentSkipped(tenantID, lead.ID, campaignID)
		s.publish(ctx, events.AssignmentSkipped{
			BaseEvent:  events.NewBaseEvent(),
			TenantID:   tenantID,
			LeadID:     lead.ID,
			CampaignID: campaignID,
		})
		return domain.IngestResult{Lead: lead, Outcome: domain.OutcomeAssignmentSkipped}, nil
	}

	agentID := agent.ID
	lead.AssignedAgentID = &agentID
	lead.AssignedAt = &assignedAt
	lead.UpdatedAt = assignedAt

	s.publish(ctx, events.LeadAssigned{
		BaseEvent:  events.NewBaseEvent(),
		TenantID:   tenantID,
		LeadID:     lead.ID,
		AgentID:    agent.ID,
		CampaignID: campaignID,
	})
	if s.notifier != nil {
		s.notifier.Notify(ctx, *agent, *lead)
	}

	return domain.IngestResult{Lead: lead, Outcome: domain.OutcomeCreated, Agent: agent}, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus != nil {
		s.bus.Publish(ctx, event)
	}
}

// clean trims and sanitizes the record. A phone that normalizes to nothing
// counts as absent, so an email-only record is stored with phone "".
func clean(record domain.NormalizedLeadRecord) domain.NormalizedLeadRecord {
	rec := record.Trimmed()
	rec.Name = sanitize.Line(rec.Name)
	rec.SubSource = sanitize.Line(rec.SubSource)
	if _, ok := phone.Normalize(rec.Phone); !ok {
		rec.Phone = ""
	}
	if rec.Extension == nil {
		rec.Extension = domain.ExtensionData{}
	}
	return rec
}
