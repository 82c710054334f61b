package notification

import (
	"context"
	"time"

	"leadintake_backend/internal/leads/domain"
	"leadintake_backend/platform/logger"
)

// Enqueuer hands an Assignment to whatever delivers it later.
type Enqueuer interface {
	EnqueueLeadAssigned(ctx context.Context, a Assignment) error
}

// Dispatcher is the ingestion-side notifier: it never blocks on delivery
// and never fails the ingestion that triggered it.
type Dispatcher struct {
	enqueuer Enqueuer
	log      *logger.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(enqueuer Enqueuer, log *logger.Logger) *Dispatcher {
	return &Dispatcher{enqueuer: enqueuer, log: log}
}

// Notify satisfies ingestion.Notifier.
func (d *Dispatcher) Notify(ctx context.Context, agent domain.Agent, lead domain.Lead) {
	if d == nil || d.enqueuer == nil {
		return
	}
	if err := d.enqueuer.EnqueueLeadAssigned(ctx, NewAssignment(agent, lead)); err != nil {
		d.log.Error("failed to enqueue agent notification", "error", err, "agentId", agent.ID, "leadId", lead.ID)
	}
}

// InlineEnqueuer delivers in a background goroutine. It is used when no
// task queue is configured.
type InlineEnqueuer struct {
	sender  *Fanout
	timeout time.Duration
	log     *logger.Logger
}

// NewInlineEnqueuer creates an InlineEnqueuer.
func NewInlineEnqueuer(sender *Fanout, log *logger.Logger) *InlineEnqueuer {
	return &InlineEnqueuer{sender: sender, timeout: 30 * time.Second, log: log}
}

func (e *InlineEnqueuer) EnqueueLeadAssigned(ctx context.Context, a Assignment) error {
	go func() {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
		defer cancel()
		if err := e.sender.Send(sendCtx, a); err != nil {
			e.log.Error("agent notification failed", "error", err, "agentId", a.AgentID, "leadId", a.LeadID)
		}
	}()
	return nil
}
