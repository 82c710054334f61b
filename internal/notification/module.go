// Package notification tells agents about leads assigned to them. Delivery
// runs through email and WhatsApp channels, usually from a queued task.
package notification

import (
	"context"

	"leadintake_backend/internal/events"
	"leadintake_backend/platform/config"
	"leadintake_backend/platform/logger"
)

// Module wires the notification channels.
type Module struct {
	sender     *Fanout
	dispatcher *Dispatcher
	log        *logger.Logger
}

// NewModule builds the configured channels. With a nil enqueuer delivery
// happens in-process.
func NewModule(cfg config.NotificationConfig, enqueuer Enqueuer, log *logger.Logger) *Module {
	sender := NewFanout(log, NewEmailSender(cfg), NewWhatsAppSender(cfg))
	if sender.Len() == 0 {
		log.Info("agent notifications disabled: no channel configured")
	}
	if enqueuer == nil {
		enqueuer = NewInlineEnqueuer(sender, log)
	}
	return &Module{
		sender:     sender,
		dispatcher: NewDispatcher(enqueuer, log),
		log:        log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "notification" }

// Sender is the channel fanout the queue worker delivers through.
func (m *Module) Sender() *Fanout { return m.sender }

// Dispatcher is the notifier handed to the ingestion service.
func (m *Module) Dispatcher() *Dispatcher { return m.dispatcher }

// RegisterHandlers subscribes to lead events that need an operator's attention.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.AssignmentSkipped{}.EventName(), events.HandlerFunc(func(_ context.Context, event events.Event) error {
		e, ok := event.(events.AssignmentSkipped)
		if !ok {
			return nil
		}
		m.log.Warn("lead left unassigned, no eligible agents", "tenantId", e.TenantID, "leadId", e.LeadID, "campaignId", e.CampaignID)
		return nil
	}))
}
