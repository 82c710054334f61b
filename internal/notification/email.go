package notification

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"time"

	"leadintake_backend/platform/config"

	gomail "github.com/wneessen/go-mail"
)

const subjectLeadAssigned = "New Lead Assigned!"

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// ErrNoRecipient is returned when a channel has no address for the agent.
var ErrNoRecipient = errors.New("agent has no address for this channel")

// EmailSender delivers assignment notices over SMTP via go-mail.
type EmailSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewEmailSender returns nil when SMTP is not configured.
func NewEmailSender(cfg config.NotificationConfig) *EmailSender {
	if !cfg.IsSMTPEnabled() {
		return nil
	}
	return &EmailSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
	}
}

func (s *EmailSender) Name() string { return "email" }

func (s *EmailSender) Send(ctx context.Context, a Assignment) error {
	if a.AgentEmail == "" {
		return ErrNoRecipient
	}

	body, err := renderLeadAssigned(a)
	if err != nil {
		return err
	}

	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(a.AgentEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subjectLeadAssigned)
	msg.SetBodyString(gomail.TypeTextHTML, body)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func renderLeadAssigned(a Assignment) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "lead_assigned.html", a); err != nil {
		return "", fmt.Errorf("render lead_assigned.html: %w", err)
	}
	return buf.String(), nil
}
