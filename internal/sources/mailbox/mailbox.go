// Package mailbox polls an IMAP inbox for marketplace lead emails.
package mailbox

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"leadintake_backend/internal/sources"
)

// DefaultBatchLimit caps how many messages one poll processes.
const DefaultBatchLimit = 50

// Credentials locate and unlock one inbox.
type Credentials struct {
	Host     string
	Port     int
	Username string
	Password string
	Folder   string
}

// Message is the subset of an email the parsers need.
type Message struct {
	UID       int
	MessageID string
	Subject   string
	Text      string
	HTML      string
}

// Session is an open, authenticated IMAP connection.
type Session interface {
	SelectFolder(folder string) error
	Search(criteria string) ([]int, error)
	Fetch(uids []int) ([]Message, error)
	Close() error
}

// Dialer opens sessions.
type Dialer interface {
	Dial(ctx context.Context, creds Credentials) (Session, error)
}

// Poller turns unseen inbox messages into envelopes.
type Poller struct {
	dialer Dialer
	limit  int
}

// NewPoller creates a Poller. limit <= 0 uses DefaultBatchLimit.
func NewPoller(dialer Dialer, limit int) *Poller {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	return &Poller{dialer: dialer, limit: limit}
}

// Poll returns envelopes for the newest messages matching criteria.
func (p *Poller) Poll(ctx context.Context, creds Credentials, criteria string) ([]sources.Envelope, error) {
	session, err := p.dialer.Dial(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("imap connect %s: %w", creds.Host, err)
	}
	defer func() {
		_ = session.Close()
	}()

	folder := creds.Folder
	if folder == "" {
		folder = "INBOX"
	}
	if err := session.SelectFolder(folder); err != nil {
		return nil, fmt.Errorf("imap select %s: %w", folder, err)
	}

	uids, err := session.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}
	sort.Ints(uids)
	if len(uids) > p.limit {
		uids = uids[len(uids)-p.limit:]
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	messages, err := session.Fetch(uids)
	if err != nil {
		return nil, fmt.Errorf("imap fetch: %w", err)
	}
	sort.Slice(messages, func(i, j int) bool { return messages[i].UID < messages[j].UID })

	envelopes := make([]sources.Envelope, 0, len(messages))
	for _, m := range messages {
		envelopes = append(envelopes, toEnvelope(m))
	}
	return envelopes, nil
}

func toEnvelope(m Message) sources.Envelope {
	env := sources.Envelope{
		MessageID: strings.TrimSpace(m.MessageID),
		Subject:   m.Subject,
	}
	if env.MessageID == "" {
		env.MessageID = "no_id_" + strconv.Itoa(m.UID)
	}
	if strings.TrimSpace(m.Text) != "" {
		env.Body = []byte(m.Text)
	} else {
		env.Body = []byte(m.HTML)
		env.HTML = true
	}
	return env
}
