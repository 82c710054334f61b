package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"leadintake_backend/platform/config"
	"leadintake_backend/platform/phone"
)

// WhatsAppSender sends a template message through an HTTP WhatsApp gateway.
type WhatsAppSender struct {
	baseURL  string
	token    string
	template string
	region   string
	http     *http.Client
}

type whatsAppTemplateRequest struct {
	To         string            `json:"to"`
	Template   string            `json:"template"`
	Parameters map[string]string `json:"parameters"`
}

// NewWhatsAppSender returns nil when no gateway is configured.
func NewWhatsAppSender(cfg config.NotificationConfig) *WhatsAppSender {
	if !cfg.IsWhatsAppEnabled() {
		return nil
	}
	return &WhatsAppSender{
		baseURL:  strings.TrimRight(cfg.GetWhatsAppAPIURL(), "/"),
		token:    cfg.GetWhatsAppAPIToken(),
		template: cfg.GetWhatsAppTemplate(),
		region:   cfg.GetDefaultPhoneRegion(),
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *WhatsAppSender) Name() string { return "whatsapp" }

func (s *WhatsAppSender) Send(ctx context.Context, a Assignment) error {
	if strings.TrimSpace(a.AgentPhone) == "" {
		return ErrNoRecipient
	}

	payload := whatsAppTemplateRequest{
		To:       strings.TrimPrefix(phone.NormalizeE164(a.AgentPhone, s.region), "+"),
		Template: s.template,
		Parameters: map[string]string{
			"agent_name":  a.AgentName,
			"lead_source": a.SourceLabel(),
			"lead_name":   a.LeadName,
			"lead_phone":  a.LeadPhone,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal whatsapp payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("whatsapp gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return nil
}
