// Package webhook is the inbound HTTP edge for push sources: tenant API-key
// form posts and the Facebook lead-ads page webhook.
package webhook

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrAPIKeyNotFound = errors.New("webhook API key not found")

// APIKey represents a webhook API key stored in the database.
// Leads posted with the key are attributed to CampaignID when set.
type APIKey struct {
	ID         int64
	TenantID   int64
	Name       string
	KeyHash    string
	KeyPrefix  string
	CampaignID *int64
	IsActive   bool
	CreatedAt  time.Time
}

// KeyLookup resolves a hashed key to an active APIKey.
type KeyLookup interface {
	GetByHash(ctx context.Context, keyHash string) (APIKey, error)
}

const apiKeyColumns = `id, tenant_id, name, key_hash, key_prefix, campaign_id, is_active, created_at`

const (
	createKeyQuery = `INSERT INTO webhook_api_keys (tenant_id, name, key_hash, key_prefix, campaign_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + apiKeyColumns

	getKeyByHashQuery = `SELECT ` + apiKeyColumns + `
		FROM webhook_api_keys WHERE key_hash = $1 AND is_active`

	listKeysQuery = `SELECT ` + apiKeyColumns + `
		FROM webhook_api_keys WHERE tenant_id = $1 ORDER BY created_at DESC`

	revokeKeyQuery = `UPDATE webhook_api_keys SET is_active = false
		WHERE tenant_id = $1 AND id = $2`
)

// Repository provides data access for webhook API keys.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GenerateAPIKey creates a random key. Only the hash is stored; the
// plaintext is shown to the caller once.
func GenerateAPIKey() (plaintext string, hash string, prefix string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", "", err
	}
	plaintext = "whk_" + hex.EncodeToString(buf)
	return plaintext, HashKey(plaintext), plaintext[:12], nil
}

// HashKey hashes a plaintext API key for lookup.
func HashKey(plaintext string) string {
	h := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(h[:])
}

func (r *Repository) Create(ctx context.Context, tenantID int64, name, keyHash, keyPrefix string, campaignID *int64) (APIKey, error) {
	return scanAPIKey(r.pool.QueryRow(ctx, createKeyQuery, tenantID, name, keyHash, keyPrefix, campaignID))
}

func (r *Repository) GetByHash(ctx context.Context, keyHash string) (APIKey, error) {
	key, err := scanAPIKey(r.pool.QueryRow(ctx, getKeyByHashQuery, keyHash))
	if errors.Is(err, pgx.ErrNoRows) {
		return APIKey{}, ErrAPIKeyNotFound
	}
	return key, err
}

func (r *Repository) ListByTenant(ctx context.Context, tenantID int64) ([]APIKey, error) {
	rows, err := r.pool.Query(ctx, listKeysQuery, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make([]APIKey, 0)
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (r *Repository) Revoke(ctx context.Context, tenantID, keyID int64) error {
	tag, err := r.pool.Exec(ctx, revokeKeyQuery, tenantID, keyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAPIKeyNotFound
	}
	return nil
}

func scanAPIKey(row pgx.Row) (APIKey, error) {
	var key APIKey
	err := row.Scan(&key.ID, &key.TenantID, &key.Name, &key.KeyHash, &key.KeyPrefix, &key.CampaignID, &key.IsActive, &key.CreatedAt)
	return key, err
}
