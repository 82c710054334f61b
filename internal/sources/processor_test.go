package sources

import (
	"context"
	"errors"
	"testing"
	"time"

	"leadintake_backend/internal/leads/assignment"
	"leadintake_backend/internal/leads/domain"
	"leadintake_backend/internal/leads/ingestion"
	"leadintake_backend/internal/leads/leadstest"
	"leadintake_backend/internal/ledger"
	"leadintake_backend/platform/logger"
)

type stubAdapter struct {
	source  string
	guarded bool
	parse   func(Envelope) ([]Inbound, error)
}

func (a stubAdapter) Source() string     { return a.source }
func (a stubAdapter) SameDayGuard() bool { return a.guarded }
func (a stubAdapter) Parse(_ context.Context, env Envelope) ([]Inbound, error) {
	return a.parse(env)
}

type failingIngester struct{ err error }

func (f failingIngester) IngestWithResult(context.Context, int64, string, domain.NormalizedLeadRecord, *int64) (domain.IngestResult, error) {
	return domain.IngestResult{}, f.err
}

var testDay = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

type processorFixture struct {
	store  *leadstest.Store
	ledger *ledger.Memory
	proc   *Processor
}

func newProcessorFixture() *processorFixture {
	store := leadstest.NewStore()
	store.Now = func() time.Time { return testDay }
	store.AddAgent(domain.Agent{ID: 1, TenantID: 1, Name: "Asha", Active: true})

	log := logger.Nop()
	engine := assignment.NewEngine(assignment.NewRoster(store, assignment.FallbackWiden, log), assignment.NewKeyedMutex())
	svc := ingestion.New(store, engine, nil, nil, log)

	l := ledger.NewMemory()
	proc := NewProcessor(l, store, svc, log)
	proc.now = func() time.Time { return testDay.Add(3 * time.Hour) }
	return &processorFixture{store: store, ledger: l, proc: proc}
}

func TestProcessRecordsAndSkipsRedelivery(t *testing.T) {
	f := newProcessorFixture()
	adapter := stubAdapter{source: "webhook"}
	in := Inbound{MessageID: "msg-1", Record: domain.NormalizedLeadRecord{Name: "Ravi", Phone: "9123456780"}}

	first, err := f.proc.Process(context.Background(), 1, nil, adapter, in)
	if err != nil {
		t.Fatalf("first process failed: %v", err)
	}
	if first.Outcome != OutcomeIngested || first.Lead == nil {
		t.Fatalf("expected ingested lead, got %+v", first)
	}

	second, err := f.proc.Process(context.Background(), 1, nil, adapter, in)
	if err != nil {
		t.Fatalf("second process failed: %v", err)
	}
	if second.Outcome != OutcomeAlreadySeen {
		t.Fatalf("expected redelivery to be skipped, got %s", second.Outcome)
	}
	if f.store.Updates != 0 || len(f.store.Leads()) != 1 {
		t.Fatal("redelivered message must not touch the store")
	}
}

func TestProcessRecordsPermanentRejection(t *testing.T) {
	f := newProcessorFixture()
	adapter := stubAdapter{source: "webhook"}
	in := Inbound{MessageID: "msg-empty", Record: domain.NormalizedLeadRecord{Name: "No Contact"}}

	res, err := f.proc.Process(context.Background(), 1, nil, adapter, in)
	if err != nil {
		t.Fatalf("rejection must not be an error: %v", err)
	}
	if res.Outcome != OutcomeRejected {
		t.Fatalf("expected rejected, got %s", res.Outcome)
	}
	if ok, _ := f.ledger.Exists(context.Background(), 1, "msg-empty"); !ok {
		t.Fatal("permanently rejected message must be recorded")
	}
}

func TestProcessDoesNotRecordOnPersistenceFailure(t *testing.T) {
	f := newProcessorFixture()
	f.proc.ingest = failingIngester{err: domain.Persistence("insert lead", errors.New("connection reset"))}

	_, err := f.proc.Process(context.Background(), 1, nil, stubAdapter{source: "webhook"},
		Inbound{MessageID: "msg-retry", Record: domain.NormalizedLeadRecord{Phone: "9123456780"}})
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if f.ledger.Len() != 0 {
		t.Fatal("message must stay unrecorded so the transport retries it")
	}
}

func TestSameDayGuardSkipsRepeatInquiry(t *testing.T) {
	f := newProcessorFixture()
	adapter := stubAdapter{source: domain.SourceMagicbricks, guarded: true}
	ctx := context.Background()

	first, err := f.proc.Process(ctx, 1, nil, adapter, Inbound{MessageID: "<a@mb>", Record: domain.NormalizedLeadRecord{Phone: "9123456780"}})
	if err != nil || first.Outcome != OutcomeIngested {
		t.Fatalf("expected first inquiry to be ingested, got %+v %v", first, err)
	}

	second, err := f.proc.Process(ctx, 1, nil, adapter, Inbound{MessageID: "<b@mb>", Record: domain.NormalizedLeadRecord{Phone: "9123456780", Name: "Ravi"}})
	if err != nil {
		t.Fatalf("second process failed: %v", err)
	}
	if second.Outcome != OutcomeDuplicateToday {
		t.Fatalf("expected same-day duplicate, got %s", second.Outcome)
	}
	if ok, _ := f.ledger.Exists(ctx, 1, "<b@mb>"); !ok {
		t.Fatal("skipped duplicate must still be recorded")
	}
	if f.store.Updates != 0 {
		t.Fatal("same-day duplicate must not merge into the existing lead")
	}
}

func TestSameDayGuardMatchesPaddedPhone(t *testing.T) {
	f := newProcessorFixture()
	adapter := stubAdapter{source: domain.SourceMagicbricks, guarded: true}
	ctx := context.Background()

	if _, err := f.proc.Process(ctx, 1, nil, adapter, Inbound{MessageID: "<p1@mb>", Record: domain.NormalizedLeadRecord{Phone: "9123456780"}}); err != nil {
		t.Fatalf("first process failed: %v", err)
	}

	res, err := f.proc.Process(ctx, 1, nil, adapter, Inbound{MessageID: "<p2@mb>", Record: domain.NormalizedLeadRecord{Phone: "  9123456780\n"}})
	if err != nil {
		t.Fatalf("second process failed: %v", err)
	}
	if res.Outcome != OutcomeDuplicateToday {
		t.Fatalf("expected padded resend to be a same-day duplicate, got %s", res.Outcome)
	}
	if f.store.Updates != 0 {
		t.Fatalf("expected no merge, got %d updates", f.store.Updates)
	}
}

func TestSameDayGuardIgnoresYesterday(t *testing.T) {
	f := newProcessorFixture()
	f.store.PutLead(domain.Lead{TenantID: 1, Phone: "9123456780", Name: "Ravi", Source: domain.SourceMagicbricks, CreatedAt: testDay.Add(-24 * time.Hour)})
	adapter := stubAdapter{source: domain.SourceMagicbricks, guarded: true}

	res, err := f.proc.Process(context.Background(), 1, nil, adapter, Inbound{MessageID: "<c@mb>", Record: domain.NormalizedLeadRecord{Phone: "9123456780"}})
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if res.Outcome != OutcomeIngested {
		t.Fatalf("expected a merge into yesterday's lead, got %s", res.Outcome)
	}
	if f.store.Updates != 1 {
		t.Fatalf("expected one update, got %d", f.store.Updates)
	}
}

func TestProcessEnvelopeRecordsNonLeads(t *testing.T) {
	f := newProcessorFixture()
	adapter := stubAdapter{source: domain.SourceHousing, parse: func(Envelope) ([]Inbound, error) {
		return nil, ErrNotALead
	}}

	results, err := f.proc.ProcessEnvelope(context.Background(), 1, nil, adapter, Envelope{MessageID: "<newsletter@housing>"})
	if err != nil {
		t.Fatalf("process envelope failed: %v", err)
	}
	if len(results) != 1 || results[0].Outcome != OutcomeRejected {
		t.Fatalf("expected a single rejection, got %+v", results)
	}

	again, _ := f.proc.ProcessEnvelope(context.Background(), 1, nil, adapter, Envelope{MessageID: "<newsletter@housing>"})
	if again[0].Outcome != OutcomeAlreadySeen {
		t.Fatalf("expected already processed, got %s", again[0].Outcome)
	}
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry(stubAdapter{source: "b"}, stubAdapter{source: "a"})
	if _, err := r.Get("a"); err != nil {
		t.Fatalf("expected adapter a: %v", err)
	}
	if _, err := r.Get("missing"); err == nil {
		t.Fatal("expected error for unknown source")
	}
	if got := r.Sources(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected sources %v", got)
	}
}
