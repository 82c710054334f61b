package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"leadintake_backend/internal/events"
	"leadintake_backend/internal/leads/domain"
	"leadintake_backend/internal/sources"
	"leadintake_backend/internal/sources/indiamart"
	"leadintake_backend/internal/sources/mailbox"
	"leadintake_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

// Store is the integration persistence the runner needs.
type Store interface {
	ListActive(ctx context.Context) ([]Integration, error)
	Claim(ctx context.Context, id int64, fn func(ctx context.Context, in Integration) (time.Time, error)) error
}

// SecretOpener decrypts stored credentials.
type SecretOpener interface {
	Open(sealed string) (string, error)
}

// InquiryFetcher pulls IndiaMART inquiries.
type InquiryFetcher interface {
	Fetch(ctx context.Context, creds indiamart.Credentials, lastSync *time.Time, now time.Time) ([]json.RawMessage, error)
}

// MailboxPoller reads candidate emails.
type MailboxPoller interface {
	Poll(ctx context.Context, creds mailbox.Credentials, criteria string) ([]sources.Envelope, error)
}

type searchable interface {
	SearchCriteria() string
}

// Runner syncs integrations.
type Runner struct {
	store       Store
	secrets     SecretOpener
	registry    *sources.Registry
	processor   *sources.Processor
	inquiries   InquiryFetcher
	mail        MailboxPoller
	bus         events.Bus
	log         *logger.Logger
	concurrency int
	now         func() time.Time
}

// RunnerDeps groups the runner's collaborators.
type RunnerDeps struct {
	Store       Store
	Secrets     SecretOpener
	Registry    *sources.Registry
	Processor   *sources.Processor
	Inquiries   InquiryFetcher
	Mail        MailboxPoller
	Bus         events.Bus
	Log         *logger.Logger
	Concurrency int
}

// NewRunner creates a Runner.
func NewRunner(deps RunnerDeps) *Runner {
	concurrency := deps.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{
		store:       deps.Store,
		secrets:     deps.Secrets,
		registry:    deps.Registry,
		processor:   deps.Processor,
		inquiries:   deps.Inquiries,
		mail:        deps.Mail,
		bus:         deps.Bus,
		log:         deps.Log,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// SyncAll syncs every active integration, a bounded number at a time.
// Per-integration failures are logged; integrations already being synced
// elsewhere are skipped.
func (r *Runner) SyncAll(ctx context.Context) error {
	list, err := r.store.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list integrations: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, in := range list {
		id := in.ID
		g.Go(func() error {
			if _, err := r.SyncOne(gctx, id); err != nil && !errors.Is(err, ErrBusy) {
				r.log.Error("integration sync failed", "integrationId", id, "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// SyncOne claims and syncs one integration.
func (r *Runner) SyncOne(ctx context.Context, id int64) (Summary, error) {
	var summary Summary
	err := r.store.Claim(ctx, id, func(ctx context.Context, in Integration) (time.Time, error) {
		ctx = logger.ContextWithTenant(ctx, in.TenantID)
		ctx = logger.ContextWithSource(ctx, in.Kind)
		now := r.now().UTC()

		s, err := r.sync(ctx, in, now)
		summary = s
		if err != nil {
			return time.Time{}, err
		}
		return now, nil
	})
	if err != nil {
		return summary, err
	}

	r.log.SyncCompleted(summary.IntegrationID, summary.Kind, summary.Fetched, summary.Ingested)
	return summary, nil
}

func (r *Runner) sync(ctx context.Context, in Integration, now time.Time) (Summary, error) {
	summary := Summary{IntegrationID: in.ID, Kind: in.Kind, SyncedAt: now}

	adapter, err := r.registry.Get(in.Kind)
	if err != nil {
		return summary, fmt.Errorf("%w: %s", ErrUnsupportedKind, in.Kind)
	}
	secret, err := r.secrets.Open(in.SecretEnc)
	if err != nil {
		return summary, fmt.Errorf("open integration secret: %w", err)
	}

	envelopes, err := r.fetch(ctx, in, adapter, secret, now)
	if err != nil {
		return summary, err
	}
	summary.Fetched = len(envelopes)

	var storeErr error
	for _, env := range envelopes {
		results, err := r.processor.ProcessEnvelope(ctx, in.TenantID, in.CampaignID, adapter, env)
		if err != nil {
			summary.Failed++
			if errors.Is(err, domain.ErrPersistence) {
				storeErr = err
			}
			r.log.Warn("integration message failed", "integrationId", in.ID, "messageId", env.MessageID, "error", err)
			continue
		}
		for _, res := range results {
			if res.Outcome == sources.OutcomeIngested {
				summary.Ingested++
			}
		}
	}
	if storeErr != nil {
		return summary, storeErr
	}

	if r.bus != nil {
		r.bus.Publish(ctx, events.IntegrationSynced{
			BaseEvent:     events.NewBaseEvent(),
			TenantID:      in.TenantID,
			IntegrationID: in.ID,
			Kind:          in.Kind,
			Fetched:       summary.Fetched,
			Ingested:      summary.Ingested,
		})
	}
	return summary, nil
}

func (r *Runner) fetch(ctx context.Context, in Integration, adapter sources.Adapter, secret string, now time.Time) ([]sources.Envelope, error) {
	if in.Kind == domain.SourceIndiaMART {
		items, err := r.inquiries.Fetch(ctx, indiamart.Credentials{Mobile: in.Settings.Mobile, Key: secret}, in.LastSyncTime, now)
		if err != nil {
			return nil, err
		}
		return indiamart.Envelopes(items)
	}

	s, ok := adapter.(searchable)
	if !ok || !IsMailbox(in.Kind) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, in.Kind)
	}
	return r.mail.Poll(ctx, mailbox.Credentials{
		Host:     in.Settings.Host,
		Port:     in.Settings.Port,
		Username: in.Settings.Username,
		Password: secret,
		Folder:   in.Settings.Folder,
	}, s.SearchCriteria())
}
