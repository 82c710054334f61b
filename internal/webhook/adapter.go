package webhook

import (
	"context"
	"encoding/json"
	"fmt"

	"leadintake_backend/internal/leads/domain"
	"leadintake_backend/internal/sources"
)

// FormAdapter parses submissions posted to the generic lead webhook. The
// envelope body is the flattened field map as JSON.
type FormAdapter struct{}

func (FormAdapter) Source() string { return domain.SourceWebhook }

func (FormAdapter) Parse(_ context.Context, env sources.Envelope) ([]sources.Inbound, error) {
	var fields map[string]string
	if err := json.Unmarshal(env.Body, &fields); err != nil {
		return nil, fmt.Errorf("decode webhook submission: %w", err)
	}
	return []sources.Inbound{{MessageID: env.MessageID, Record: ExtractRecord(fields)}}, nil
}

// MessageID namespaces a caller-supplied idempotency key.
func MessageID(key string) string {
	if key == "" {
		return ""
	}
	return "webhook:" + key
}
