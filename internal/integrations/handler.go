package integrations

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"leadintake_backend/internal/leads/domain"
	"leadintake_backend/platform/apperr"
	"leadintake_backend/platform/httpkit"
	"leadintake_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	errInvalidRequest  = "invalid request body"
	errValidation      = "validation error"
	errUnknownCampaign = "campaign not found"
)

// TenantStore is the tenant-facing integration persistence.
type TenantStore interface {
	ListByTenant(ctx context.Context, tenantID int64) ([]Integration, error)
	GetByTenant(ctx context.Context, tenantID, id int64) (Integration, error)
	Upsert(ctx context.Context, in Integration) (Integration, error)
}

// SyncTrigger starts an on-demand sync.
type SyncTrigger interface {
	EnqueueIntegrationSync(ctx context.Context, integrationID int64) error
}

// SecretSealer encrypts credentials before they are stored.
type SecretSealer interface {
	Seal(plaintext string) (string, error)
}

// CampaignChecker confirms a campaign belongs to the tenant.
type CampaignChecker interface {
	GetCampaign(ctx context.Context, tenantID, campaignID int64) (domain.Campaign, error)
}

type Handler struct {
	store     TenantStore
	trigger   SyncTrigger
	sealer    SecretSealer
	campaigns CampaignChecker
	val       *validator.Validator
}

func NewHandler(store TenantStore, trigger SyncTrigger, sealer SecretSealer, campaigns CampaignChecker, val *validator.Validator) *Handler {
	return &Handler{store: store, trigger: trigger, sealer: sealer, campaigns: campaigns, val: val}
}

// UpsertRequest configures one pull source. An empty Secret keeps the
// stored one.
type UpsertRequest struct {
	CampaignID *int64 `json:"campaignId" validate:"omitempty,gt=0"`
	Active     *bool  `json:"active"`
	Mobile     string `json:"mobile" validate:"omitempty,max=20,phone_digits"`
	Host       string `json:"host" validate:"omitempty,hostname|ip"`
	Port       int    `json:"port" validate:"omitempty,min=1,max=65535"`
	Username   string `json:"username" validate:"max=254"`
	Folder     string `json:"folder" validate:"max=200"`
	Secret     string `json:"secret" validate:"max=1000"`
}

// Response is an integration without its secret.
type Response struct {
	ID           int64      `json:"id"`
	Kind         string     `json:"kind"`
	CampaignID   *int64     `json:"campaignId,omitempty"`
	Settings     Settings   `json:"settings"`
	HasSecret    bool       `json:"hasSecret"`
	LastSyncTime *time.Time `json:"lastSyncTime,omitempty"`
	Active       bool       `json:"active"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func toResponse(in Integration) Response {
	return Response{
		ID:           in.ID,
		Kind:         in.Kind,
		CampaignID:   in.CampaignID,
		Settings:     in.Settings,
		HasSecret:    in.SecretEnc != "",
		LastSyncTime: in.LastSyncTime,
		Active:       in.Active,
		UpdatedAt:    in.UpdatedAt,
	}
}

// HandleList returns the tenant's integrations.
// GET /api/v1/integrations
func (h *Handler) HandleList(c *gin.Context) {
	tenantID, ok := httpkit.MustTenantID(c)
	if !ok {
		return
	}

	list, err := h.store.ListByTenant(c.Request.Context(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]Response, len(list))
	for i, in := range list {
		out[i] = toResponse(in)
	}
	httpkit.OK(c, out)
}

// HandleUpsert creates or replaces the tenant's integration of one kind.
// PUT /api/v1/integrations/:kind
func (h *Handler) HandleUpsert(c *gin.Context) {
	tenantID, ok := httpkit.MustTenantID(c)
	if !ok {
		return
	}

	kind := c.Param("kind")
	if !SupportedKind(kind) {
		httpkit.Error(c, http.StatusBadRequest, ErrUnsupportedKind.Error(), kind)
		return
	}

	var req UpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errValidation, err.Error())
		return
	}
	if msg := missingSettings(kind, req); msg != "" {
		httpkit.Error(c, http.StatusBadRequest, errValidation, msg)
		return
	}

	if req.CampaignID != nil {
		_, err := h.campaigns.GetCampaign(c.Request.Context(), tenantID, *req.CampaignID)
		if errors.Is(err, domain.ErrCampaignNotFound) {
			httpkit.Error(c, http.StatusBadRequest, errUnknownCampaign, nil)
			return
		}
		if httpkit.HandleError(c, err) {
			return
		}
	}

	var sealed string
	if req.Secret != "" {
		s, err := h.sealer.Seal(req.Secret)
		if httpkit.HandleError(c, err) {
			return
		}
		sealed = s
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	out, err := h.store.Upsert(c.Request.Context(), Integration{
		TenantID:   tenantID,
		Kind:       kind,
		CampaignID: req.CampaignID,
		Settings: Settings{
			Mobile:   req.Mobile,
			Host:     req.Host,
			Port:     req.Port,
			Username: req.Username,
			Folder:   req.Folder,
		},
		SecretEnc: sealed,
		Active:    active,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(out))
}

// HandleSync queues an immediate sync.
// POST /api/v1/integrations/:id/sync
func (h *Handler) HandleSync(c *gin.Context) {
	tenantID, ok := httpkit.MustTenantID(c)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		httpkit.Error(c, http.StatusBadRequest, "invalid integration ID", nil)
		return
	}

	in, err := h.store.GetByTenant(c.Request.Context(), tenantID, id)
	if errors.Is(err, ErrNotFound) {
		err = apperr.NotFound(ErrNotFound.Error())
	}
	if httpkit.HandleError(c, err) {
		return
	}
	if !in.Active {
		httpkit.HandleError(c, apperr.Conflict("integration is inactive"))
		return
	}

	if httpkit.HandleError(c, h.trigger.EnqueueIntegrationSync(c.Request.Context(), in.ID)) {
		return
	}
	httpkit.JSON(c, http.StatusAccepted, gin.H{"integrationId": in.ID, "status": "queued"})
}

func missingSettings(kind string, req UpsertRequest) string {
	if kind == domain.SourceIndiaMART {
		if req.Mobile == "" {
			return "mobile is required"
		}
		return ""
	}
	if req.Host == "" || req.Username == "" {
		return "host and username are required"
	}
	return ""
}

// RunnerTrigger syncs in the background without a queue.
type RunnerTrigger struct {
	runner  *Runner
	timeout time.Duration
}

func NewRunnerTrigger(runner *Runner, timeout time.Duration) *RunnerTrigger {
	return &RunnerTrigger{runner: runner, timeout: timeout}
}

func (t *RunnerTrigger) EnqueueIntegrationSync(ctx context.Context, integrationID int64) error {
	go func() {
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.timeout)
		defer cancel()
		if _, err := t.runner.SyncOne(bg, integrationID); err != nil && !errors.Is(err, ErrBusy) {
			t.runner.log.Error("on-demand integration sync failed", "integrationId", integrationID, "error", err)
		}
	}()
	return nil
}
