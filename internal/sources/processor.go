package sources

import (
	"context"
	"errors"
	"strings"
	"time"

	"leadintake_backend/internal/leads/domain"
	"leadintake_backend/internal/leads/repository"
	"leadintake_backend/internal/ledger"
	"leadintake_backend/platform/logger"
)

// Outcome is what processing one message did.
type Outcome string

const (
	OutcomeIngested       Outcome = "ingested"
	OutcomeAlreadySeen    Outcome = "already_processed"
	OutcomeDuplicateToday Outcome = "duplicate_today"
	OutcomeRejected       Outcome = "rejected"
)

// Ingester is the ingestion core as seen by adapters.
type Ingester interface {
	IngestWithResult(ctx context.Context, tenantID int64, source string, record domain.NormalizedLeadRecord, campaignID *int64) (domain.IngestResult, error)
}

// Result reports one processed message.
type Result struct {
	MessageID string
	Outcome   Outcome
	Lead      *domain.Lead
}

// Processor runs the ledger check, the optional same-day guard and the
// ingestion for each inbound message.
type Processor struct {
	ledger  ledger.Ledger
	sameDay repository.SameDayChecker
	ingest  Ingester
	log     *logger.Logger
	now     func() time.Time
}

// NewProcessor creates a Processor.
func NewProcessor(l ledger.Ledger, sameDay repository.SameDayChecker, ingest Ingester, log *logger.Logger) *Processor {
	return &Processor{ledger: l, sameDay: sameDay, ingest: ingest, log: log, now: time.Now}
}

// AlreadyProcessed reports whether messageID is in the tenant's ledger.
func (p *Processor) AlreadyProcessed(ctx context.Context, tenantID int64, messageID string) (bool, error) {
	seen, err := p.ledger.Exists(ctx, tenantID, messageID)
	if err != nil {
		return false, domain.Persistence("ledger lookup", err)
	}
	return seen, nil
}

// ProcessEnvelope parses env with adapter and processes every inbound it yields.
// A message the adapter rejects as not-a-lead is recorded so it is not parsed again.
func (p *Processor) ProcessEnvelope(ctx context.Context, tenantID int64, campaignID *int64, adapter Adapter, env Envelope) ([]Result, error) {
	if env.MessageID != "" {
		seen, err := p.AlreadyProcessed(ctx, tenantID, env.MessageID)
		if err != nil {
			return nil, err
		}
		if seen {
			return []Result{{MessageID: env.MessageID, Outcome: OutcomeAlreadySeen}}, nil
		}
	}

	inbound, err := adapter.Parse(ctx, env)
	if errors.Is(err, ErrNotALead) {
		p.log.Debug("message ignored", "source", adapter.Source(), "messageId", env.MessageID, "reason", err)
		if recErr := p.record(ctx, tenantID, env.MessageID, adapter.Source()); recErr != nil {
			return nil, recErr
		}
		return []Result{{MessageID: env.MessageID, Outcome: OutcomeRejected}}, nil
	}
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(inbound))
	for _, in := range inbound {
		res, err := p.Process(ctx, tenantID, campaignID, adapter, in)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// Process ingests one inbound message at most once per tenant.
func (p *Processor) Process(ctx context.Context, tenantID int64, campaignID *int64, adapter Adapter, in Inbound) (Result, error) {
	source := adapter.Source()
	res := Result{MessageID: in.MessageID}

	if in.MessageID != "" {
		seen, err := p.AlreadyProcessed(ctx, tenantID, in.MessageID)
		if err != nil {
			return res, err
		}
		if seen {
			res.Outcome = OutcomeAlreadySeen
			return res, nil
		}
	}

	if usesSameDayGuard(adapter) {
		// Stored phones are trimmed, so the lookup must be too.
		dup, err := p.createdToday(ctx, tenantID, source, strings.TrimSpace(in.Record.Phone))
		if err != nil {
			return res, err
		}
		if dup {
			p.log.Info("same-day duplicate skipped", "tenantId", tenantID, "source", source, "messageId", in.MessageID)
			res.Outcome = OutcomeDuplicateToday
			return res, p.record(ctx, tenantID, in.MessageID, source)
		}
	}

	result, err := p.ingest.IngestWithResult(ctx, tenantID, source, in.Record, campaignID)
	switch {
	case errors.Is(err, domain.ErrInvalidRecord):
		res.Outcome = OutcomeRejected
		return res, p.record(ctx, tenantID, in.MessageID, source)
	case err != nil:
		return res, err
	}

	res.Outcome = OutcomeIngested
	res.Lead = result.Lead
	return res, p.record(ctx, tenantID, in.MessageID, source)
}

func (p *Processor) createdToday(ctx context.Context, tenantID int64, source, rawPhone string) (bool, error) {
	if rawPhone == "" {
		return false, nil
	}
	now := p.now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	exists, err := p.sameDay.ExistsSince(ctx, tenantID, rawPhone, source, startOfDay)
	if err != nil {
		return false, domain.Persistence("same-day lookup", err)
	}
	return exists, nil
}

func (p *Processor) record(ctx context.Context, tenantID int64, messageID, source string) error {
	if messageID == "" {
		return nil
	}
	if err := p.ledger.Record(ctx, tenantID, messageID, source); err != nil {
		return domain.Persistence("ledger record", err)
	}
	return nil
}
