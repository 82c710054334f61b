package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"leadintake_backend/internal/leads/domain"
	"leadintake_backend/internal/sources"
	"leadintake_backend/internal/sources/facebook"
	"leadintake_backend/platform/httpkit"
	"leadintake_backend/platform/logger"
	"leadintake_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	errInvalidRequest  = "invalid request body"
	errValidation      = "validation error"
	errUnknownCampaign = "campaign not found"

	// HeaderIdempotencyKey lets callers make redelivery safe.
	HeaderIdempotencyKey = "Idempotency-Key"

	maxFormMemory = 1 << 20
)

// KeyStore manages a tenant's API keys.
type KeyStore interface {
	Create(ctx context.Context, tenantID int64, name, keyHash, keyPrefix string, campaignID *int64) (APIKey, error)
	ListByTenant(ctx context.Context, tenantID int64) ([]APIKey, error)
	Revoke(ctx context.Context, tenantID, keyID int64) error
}

// CampaignChecker confirms a campaign belongs to the tenant.
type CampaignChecker interface {
	GetCampaign(ctx context.Context, tenantID, campaignID int64) (domain.Campaign, error)
}

// EnvelopeProcessor runs an envelope through the ledger and ingestion.
type EnvelopeProcessor interface {
	ProcessEnvelope(ctx context.Context, tenantID int64, campaignID *int64, adapter sources.Adapter, env sources.Envelope) ([]sources.Result, error)
}

// FacebookHandler processes page webhook deliveries.
type FacebookHandler interface {
	HandleWebhook(ctx context.Context, payload facebook.WebhookPayload) (facebook.Summary, error)
}

// PageAdmin connects and disconnects Facebook pages.
type PageAdmin interface {
	Connect(ctx context.Context, p facebook.Page) error
	Disconnect(ctx context.Context, tenantID int64, pageID string) error
}

// Sealer encrypts credentials before they are stored.
type Sealer interface {
	Seal(plaintext string) (string, error)
}

// Handler handles webhook HTTP requests.
type Handler struct {
	keys        KeyStore
	campaigns   CampaignChecker
	processor   EnvelopeProcessor
	adapter     FormAdapter
	facebook    FacebookHandler
	pages       PageAdmin
	sealer      Sealer
	verifyToken string
	val         *validator.Validator
	log         *logger.Logger
	now         func() time.Time
}

// HandlerDeps groups the handler's collaborators.
type HandlerDeps struct {
	Keys        KeyStore
	Campaigns   CampaignChecker
	Processor   EnvelopeProcessor
	Facebook    FacebookHandler
	Pages       PageAdmin
	Sealer      Sealer
	VerifyToken string
	Validator   *validator.Validator
	Log         *logger.Logger
}

func NewHandler(deps HandlerDeps) *Handler {
	return &Handler{
		keys:        deps.Keys,
		campaigns:   deps.Campaigns,
		processor:   deps.Processor,
		facebook:    deps.Facebook,
		pages:       deps.Pages,
		sealer:      deps.Sealer,
		verifyToken: deps.VerifyToken,
		val:         deps.Validator,
		log:         deps.Log,
		now:         time.Now,
	}
}

// ---- Lead submission (API-key authenticated) ----

// SubmissionResponse reports what a posted lead produced.
type SubmissionResponse struct {
	Outcome         string `json:"outcome"`
	MessageID       string `json:"messageId,omitempty"`
	LeadID          *int64 `json:"leadId,omitempty"`
	AssignedAgentID *int64 `json:"assignedAgentId,omitempty"`
}

// HandleLeadSubmission ingests a form or JSON lead.
// POST /api/v1/webhook/leads
func (h *Handler) HandleLeadSubmission(c *gin.Context) {
	tenantID, ok := httpkit.MustTenantID(c)
	if !ok {
		return
	}

	fields, ok := h.collectFields(c)
	if !ok {
		return
	}

	key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
	if key == "" {
		key = submissionMessageID(fields)
	}
	body, err := json.Marshal(fields)
	if httpkit.HandleError(c, err) {
		return
	}

	results, err := h.processor.ProcessEnvelope(c.Request.Context(), tenantID, keyCampaignID(c), h.adapter, sources.Envelope{
		MessageID: MessageID(key),
		Body:      body,
		Received:  h.now().UTC(),
	})
	if httpkit.HandleError(c, err) {
		return
	}
	if len(results) == 0 {
		httpkit.Error(c, http.StatusUnprocessableEntity, "no lead in submission", nil)
		return
	}

	res := results[0]
	resp := SubmissionResponse{Outcome: string(res.Outcome), MessageID: res.MessageID}
	if res.Lead != nil {
		leadID := res.Lead.ID
		resp.LeadID = &leadID
		resp.AssignedAgentID = res.Lead.AssignedAgentID
	}

	switch res.Outcome {
	case sources.OutcomeIngested:
		c.JSON(http.StatusCreated, resp)
	case sources.OutcomeRejected:
		httpkit.Error(c, http.StatusUnprocessableEntity, "lead requires a phone number or email", resp)
	default:
		httpkit.OK(c, resp)
	}
}

func (h *Handler) collectFields(c *gin.Context) (map[string]string, bool) {
	fields := make(map[string]string)

	if c.ContentType() == "application/json" {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, err.Error())
			return nil, false
		}
		for key, val := range body {
			if s, ok := scalarString(val); ok {
				fields[key] = s
			}
		}
	} else {
		if err := c.Request.ParseMultipartForm(maxFormMemory); err != nil {
			if err := c.Request.ParseForm(); err != nil {
				httpkit.Error(c, http.StatusBadRequest, "unable to parse form data", nil)
				return nil, false
			}
		}
		for key, values := range c.Request.PostForm {
			if len(values) > 0 {
				fields[key] = values[0]
			}
		}
	}

	if len(fields) == 0 {
		httpkit.Error(c, http.StatusBadRequest, "no form data received", nil)
		return nil, false
	}
	return fields, true
}

func scalarString(val any) (string, bool) {
	switch v := val.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

// ---- Facebook page webhook (public) ----

// HandleFacebookVerify answers the subscription handshake.
// GET /api/v1/webhook/facebook
func (h *Handler) HandleFacebookVerify(c *gin.Context) {
	challenge, ok := facebook.Verify(c.Query("hub.mode"), c.Query("hub.verify_token"), c.Query("hub.challenge"), h.verifyToken)
	if !ok {
		httpkit.Error(c, http.StatusForbidden, "verification failed", nil)
		return
	}
	c.String(http.StatusOK, challenge)
}

// HandleFacebookEvent processes leadgen notifications. A 5xx makes Facebook
// redeliver; the ledger keeps redelivery from duplicating leads.
// POST /api/v1/webhook/facebook
func (h *Handler) HandleFacebookEvent(c *gin.Context) {
	var payload facebook.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, nil)
		return
	}
	if !payload.IsPageEvent() {
		httpkit.OK(c, gin.H{"status": "ignored"})
		return
	}

	summary, err := h.facebook.HandleWebhook(c.Request.Context(), payload)
	if err != nil {
		h.log.WithContext(c.Request.Context()).Error("facebook delivery will be retried", "error", err)
		httpkit.Error(c, http.StatusServiceUnavailable, "temporarily unavailable", nil)
		return
	}
	httpkit.OK(c, gin.H{
		"received": summary.Received,
		"ingested": summary.Ingested,
		"skipped":  summary.Skipped,
		"failed":   summary.Failed,
	})
}

// ---- Admin: API keys ----

// CreateAPIKeyRequest is the request body for creating a new API key.
type CreateAPIKeyRequest struct {
	Name       string `json:"name" validate:"required,min=1,max=100"`
	CampaignID *int64 `json:"campaignId" validate:"omitempty,gt=0"`
}

// APIKeyResponse is returned when listing or creating API keys.
type APIKeyResponse struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	KeyPrefix  string    `json:"keyPrefix"`
	CampaignID *int64    `json:"campaignId,omitempty"`
	IsActive   bool      `json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
}

// CreateAPIKeyResponse includes the plaintext key, shown only once.
type CreateAPIKeyResponse struct {
	APIKeyResponse
	Key string `json:"key"`
}

// HandleCreateAPIKey creates a new webhook API key.
// POST /api/v1/admin/webhook/keys
func (h *Handler) HandleCreateAPIKey(c *gin.Context) {
	tenantID, ok := httpkit.MustTenantID(c)
	if !ok {
		return
	}

	var req CreateAPIKeyRequest
	if !h.bindAndValidate(c, &req) {
		return
	}
	if !h.checkCampaign(c, tenantID, req.CampaignID) {
		return
	}

	plaintext, hash, prefix, err := GenerateAPIKey()
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to generate API key", nil)
		return
	}

	key, err := h.keys.Create(c.Request.Context(), tenantID, req.Name, hash, prefix, req.CampaignID)
	if httpkit.HandleError(c, err) {
		return
	}

	c.JSON(http.StatusCreated, CreateAPIKeyResponse{
		APIKeyResponse: toAPIKeyResponse(key),
		Key:            plaintext,
	})
}

// HandleListAPIKeys lists the tenant's webhook API keys.
// GET /api/v1/admin/webhook/keys
func (h *Handler) HandleListAPIKeys(c *gin.Context) {
	tenantID, ok := httpkit.MustTenantID(c)
	if !ok {
		return
	}

	keys, err := h.keys.ListByTenant(c.Request.Context(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}

	result := make([]APIKeyResponse, len(keys))
	for i, k := range keys {
		result[i] = toAPIKeyResponse(k)
	}
	httpkit.OK(c, result)
}

// HandleRevokeAPIKey deactivates a webhook API key.
// DELETE /api/v1/admin/webhook/keys/:keyId
func (h *Handler) HandleRevokeAPIKey(c *gin.Context) {
	tenantID, ok := httpkit.MustTenantID(c)
	if !ok {
		return
	}

	keyID, err := strconv.ParseInt(c.Param("keyId"), 10, 64)
	if err != nil || keyID <= 0 {
		httpkit.Error(c, http.StatusBadRequest, "invalid key ID", nil)
		return
	}

	if err := h.keys.Revoke(c.Request.Context(), tenantID, keyID); err != nil {
		if errors.Is(err, ErrAPIKeyNotFound) {
			httpkit.Error(c, http.StatusNotFound, "API key not found", nil)
			return
		}
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, gin.H{"message": "API key revoked"})
}

func toAPIKeyResponse(key APIKey) APIKeyResponse {
	return APIKeyResponse{
		ID:         key.ID,
		Name:       key.Name,
		KeyPrefix:  key.KeyPrefix,
		CampaignID: key.CampaignID,
		IsActive:   key.IsActive,
		CreatedAt:  key.CreatedAt,
	}
}

// ---- Admin: Facebook pages ----

// ConnectPageRequest links a Facebook page to the tenant.
type ConnectPageRequest struct {
	PageID      string `json:"pageId" validate:"required,max=64"`
	PageName    string `json:"pageName" validate:"max=200"`
	AccessToken string `json:"accessToken" validate:"required"`
	CampaignID  *int64 `json:"campaignId" validate:"omitempty,gt=0"`
}

// HandleConnectPage stores the page and its sealed access token.
// POST /api/v1/admin/facebook/pages
func (h *Handler) HandleConnectPage(c *gin.Context) {
	tenantID, ok := httpkit.MustTenantID(c)
	if !ok {
		return
	}

	var req ConnectPageRequest
	if !h.bindAndValidate(c, &req) {
		return
	}
	if !h.checkCampaign(c, tenantID, req.CampaignID) {
		return
	}

	sealed, err := h.sealer.Seal(req.AccessToken)
	if httpkit.HandleError(c, err) {
		return
	}

	err = h.pages.Connect(c.Request.Context(), facebook.Page{
		PageID:         req.PageID,
		TenantID:       tenantID,
		CampaignID:     req.CampaignID,
		Name:           req.PageName,
		AccessTokenEnc: sealed,
	})
	if errors.Is(err, facebook.ErrPageTaken) {
		httpkit.Error(c, http.StatusConflict, "page is connected to another account", nil)
		return
	}
	if httpkit.HandleError(c, err) {
		return
	}

	c.JSON(http.StatusCreated, gin.H{"pageId": req.PageID, "campaignId": req.CampaignID})
}

// HandleDisconnectPage removes a connected page.
// DELETE /api/v1/admin/facebook/pages/:pageId
func (h *Handler) HandleDisconnectPage(c *gin.Context) {
	tenantID, ok := httpkit.MustTenantID(c)
	if !ok {
		return
	}

	err := h.pages.Disconnect(c.Request.Context(), tenantID, c.Param("pageId"))
	if errors.Is(err, facebook.ErrPageNotFound) {
		httpkit.Error(c, http.StatusNotFound, "page not found", nil)
		return
	}
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"message": "page disconnected"})
}

func (h *Handler) checkCampaign(c *gin.Context, tenantID int64, campaignID *int64) bool {
	if campaignID == nil {
		return true
	}
	_, err := h.campaigns.GetCampaign(c.Request.Context(), tenantID, *campaignID)
	if errors.Is(err, domain.ErrCampaignNotFound) {
		httpkit.Error(c, http.StatusBadRequest, errUnknownCampaign, nil)
		return false
	}
	return !httpkit.HandleError(c, err)
}

func (h *Handler) bindAndValidate(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, err.Error())
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errValidation, err.Error())
		return false
	}
	return true
}
