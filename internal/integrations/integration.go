// Package integrations stores per-tenant pull-source settings and runs the
// periodic syncs that feed them through the ingestion core.
package integrations

import (
	"errors"
	"time"

	"leadintake_backend/internal/leads/domain"
)

var (
	// ErrBusy is returned when an integration is inactive, missing, or already being synced.
	ErrBusy = errors.New("integration not available for sync")
	// ErrNotFound is returned for an integration the tenant does not own.
	ErrNotFound = errors.New("integration not found")
	// ErrUnsupportedKind is returned for kinds no fetcher handles.
	ErrUnsupportedKind = errors.New("unsupported integration kind")
)

// Kinds that can be synced.
var syncKinds = map[string]bool{
	domain.SourceIndiaMART:   true,
	domain.SourceMagicbricks: true,
	domain.Source99acres:     true,
	domain.SourceJustDial:    true,
	domain.SourceHousing:     true,
}

// SupportedKind reports whether kind can be configured.
func SupportedKind(kind string) bool {
	return syncKinds[kind]
}

// IsMailbox reports whether kind is read from an IMAP inbox.
func IsMailbox(kind string) bool {
	return kind != domain.SourceIndiaMART && syncKinds[kind]
}

// Settings are the non-secret connection details.
type Settings struct {
	Mobile   string `json:"mobile,omitempty"`
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	Username string `json:"username,omitempty"`
	Folder   string `json:"folder,omitempty"`
}

// Integration is one tenant's connection to one pull source.
// SecretEnc holds the sealed API key or app password.
type Integration struct {
	ID           int64
	TenantID     int64
	Kind         string
	CampaignID   *int64
	Settings     Settings
	SecretEnc    string
	LastSyncTime *time.Time
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Summary reports one sync run.
type Summary struct {
	IntegrationID int64
	Kind          string
	Fetched       int
	Ingested      int
	Failed        int
	SyncedAt      time.Time
}
