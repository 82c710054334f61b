package mailbox

import (
	"context"

	imap "github.com/BrianLeishman/go-imap"
)

// IMAPDialer connects with go-imap over implicit TLS.
type IMAPDialer struct{}

func (IMAPDialer) Dial(ctx context.Context, creds Credentials) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	port := creds.Port
	if port == 0 {
		port = 993
	}
	d, err := imap.New(creds.Username, creds.Password, creds.Host, port)
	if err != nil {
		return nil, err
	}
	return &imapSession{d: d}, nil
}

type imapSession struct {
	d *imap.Dialer
}

func (s *imapSession) SelectFolder(folder string) error {
	return s.d.SelectFolder(folder)
}

func (s *imapSession) Search(criteria string) ([]int, error) {
	return s.d.GetUIDs(criteria)
}

func (s *imapSession) Fetch(uids []int) ([]Message, error) {
	emails, err := s.d.GetEmails(uids...)
	if err != nil {
		return nil, err
	}
	out := make([]Message, 0, len(emails))
	for uid, e := range emails {
		out = append(out, Message{
			UID:       uid,
			MessageID: e.MessageID,
			Subject:   e.Subject,
			Text:      e.Text,
			HTML:      e.HTML,
		})
	}
	return out, nil
}

func (s *imapSession) Close() error {
	return s.d.Close()
}
