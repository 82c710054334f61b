package handler

import (
	"context"
	"errors"
	"net/http"

	"leadintake_backend/internal/leads/domain"
	"leadintake_backend/internal/leads/transport"
	"leadintake_backend/platform/httpkit"
	"leadintake_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// Ingester is the ingestion entry point.
type Ingester interface {
	IngestWithResult(ctx context.Context, tenantID int64, source string, record domain.NormalizedLeadRecord, campaignID *int64) (domain.IngestResult, error)
}

// CampaignChecker confirms a campaign belongs to the tenant.
type CampaignChecker interface {
	GetCampaign(ctx context.Context, tenantID, campaignID int64) (domain.Campaign, error)
}

type Handler struct {
	ingest    Ingester
	campaigns CampaignChecker
	val       *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgUnknownCampaign  = "campaign not found"
)

func New(ingest Ingester, campaigns CampaignChecker, val *validator.Validator) *Handler {
	return &Handler{ingest: ingest, campaigns: campaigns, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
}

// Create enters a lead by hand. It goes through the same dedup and
// assignment path as every other source.
func (h *Handler) Create(c *gin.Context) {
	tenantID, ok := httpkit.MustTenantID(c)
	if !ok {
		return
	}

	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if req.CampaignID != nil {
		_, err := h.campaigns.GetCampaign(c.Request.Context(), tenantID, *req.CampaignID)
		if errors.Is(err, domain.ErrCampaignNotFound) {
			httpkit.Error(c, http.StatusBadRequest, msgUnknownCampaign, nil)
			return
		}
		if httpkit.HandleError(c, err) {
			return
		}
	}

	result, err := h.ingest.IngestWithResult(c.Request.Context(), tenantID, domain.SourceManual, req.Record(), req.CampaignID)
	if httpkit.HandleError(c, err) {
		return
	}

	status := http.StatusCreated
	if result.Outcome == domain.OutcomeUpdated {
		status = http.StatusOK
	}
	httpkit.JSON(c, status, transport.IngestResponse{
		Outcome: string(result.Outcome),
		Lead:    transport.ToLeadResponse(*result.Lead),
	})
}
