package notification

import (
	"context"
	"errors"

	"leadintake_backend/platform/logger"
)

// Channel delivers an Assignment over one medium.
type Channel interface {
	Name() string
	Send(ctx context.Context, a Assignment) error
}

// Fanout sends to every channel. A channel without a recipient for the agent
// is skipped; other failures are joined and returned.
type Fanout struct {
	channels []Channel
	log      *logger.Logger
}

// NewFanout drops nil channels so unconfigured senders can be passed straight in.
func NewFanout(log *logger.Logger, channels ...Channel) *Fanout {
	f := &Fanout{log: log}
	for _, ch := range channels {
		if isNilChannel(ch) {
			continue
		}
		f.channels = append(f.channels, ch)
	}
	return f
}

// Len reports the number of configured channels.
func (f *Fanout) Len() int { return len(f.channels) }

func (f *Fanout) Send(ctx context.Context, a Assignment) error {
	var errs []error
	for _, ch := range f.channels {
		err := ch.Send(ctx, a)
		switch {
		case err == nil:
			f.log.Info("agent notified", "channel", ch.Name(), "agentId", a.AgentID, "leadId", a.LeadID)
		case errors.Is(err, ErrNoRecipient):
			f.log.Debug("notification channel skipped", "channel", ch.Name(), "agentId", a.AgentID)
		default:
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func isNilChannel(ch Channel) bool {
	switch c := ch.(type) {
	case nil:
		return true
	case *EmailSender:
		return c == nil
	case *WhatsAppSender:
		return c == nil
	}
	return false
}
