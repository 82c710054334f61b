package facebook

import (
	"context"
	"errors"

	"leadintake_backend/internal/sources"
	"leadintake_backend/platform/logger"
)

// LeadFetcher reads a lead from the Graph API.
type LeadFetcher interface {
	FetchLead(ctx context.Context, accessToken, leadgenID string) ([]byte, error)
}

// TokenOpener decrypts stored page tokens.
type TokenOpener interface {
	Open(sealed string) (string, error)
}

// Service handles webhook notifications end to end.
type Service struct {
	pages     PageStore
	graph     LeadFetcher
	tokens    TokenOpener
	processor *sources.Processor
	adapter   Adapter
	log       *logger.Logger
}

// NewService creates a Service.
func NewService(pages PageStore, graph LeadFetcher, tokens TokenOpener, processor *sources.Processor, log *logger.Logger) *Service {
	return &Service{pages: pages, graph: graph, tokens: tokens, processor: processor, log: log}
}

// Summary counts what one webhook delivery produced.
type Summary struct {
	Received int
	Ingested int
	Skipped  int
	Failed   int
}

// HandleWebhook processes every leadgen change. Failures are logged per lead.
// A non-nil error means at least one lead hit a transient failure and the
// delivery should be retried.
func (s *Service) HandleWebhook(ctx context.Context, payload WebhookPayload) (Summary, error) {
	var (
		summary Summary
		retry   error
	)
	for _, pl := range payload.Leads() {
		summary.Received++
		ingested, err := s.handleLead(ctx, pl)
		switch {
		case err == nil && ingested:
			summary.Ingested++
		case err == nil:
			summary.Skipped++
		default:
			summary.Failed++
			s.log.Error("facebook lead failed", "error", err, "pageId", pl.PageID, "leadgenId", pl.LeadgenID)
			if errors.Is(err, errRetryable) {
				retry = err
			}
		}
	}
	return summary, retry
}

var errRetryable = errors.New("retryable")

func (s *Service) handleLead(ctx context.Context, pl PageLead) (bool, error) {
	page, err := s.pages.GetPage(ctx, pl.PageID)
	if errors.Is(err, ErrPageNotFound) {
		s.log.Warn("webhook for unknown facebook page", "pageId", pl.PageID)
		return false, nil
	}
	if err != nil {
		return false, errors.Join(errRetryable, err)
	}

	ctx = logger.ContextWithTenant(ctx, page.TenantID)
	messageID := MessageID(pl.LeadgenID)

	seen, err := s.processor.AlreadyProcessed(ctx, page.TenantID, messageID)
	if err != nil {
		return false, errors.Join(errRetryable, err)
	}
	if seen {
		return false, nil
	}

	token, err := s.tokens.Open(page.AccessTokenEnc)
	if err != nil {
		return false, err
	}
	body, err := s.graph.FetchLead(ctx, token, pl.LeadgenID)
	if err != nil {
		return false, errors.Join(errRetryable, err)
	}

	results, err := s.processor.ProcessEnvelope(ctx, page.TenantID, page.CampaignID, s.adapter, sources.Envelope{
		MessageID: messageID,
		Body:      body,
	})
	if err != nil {
		return false, errors.Join(errRetryable, err)
	}
	for _, r := range results {
		if r.Outcome == sources.OutcomeIngested {
			return true, nil
		}
	}
	return false, nil
}
