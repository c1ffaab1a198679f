package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"leadgen_backend/internal/campaigns/service"
	"leadgen_backend/internal/campaigns/transport"
	"leadgen_backend/internal/exports"
	"leadgen_backend/platform/httpkit"
	"leadgen_backend/platform/validator"
)

// Handler handles HTTP requests for campaigns.
type Handler struct {
	svc      *service.Service
	exporter *exports.Service
	val      *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid campaign ID"
)

// New creates a new campaigns handler.
func New(svc *service.Service, exporter *exports.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, exporter: exporter, val: val}
}

// Create creates a new draft campaign.
// POST /api/v1/campaigns
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	campaign, err := h.svc.Create(c.Request.Context(), service.CreateParams{
		TenantID:    identity.TenantID(),
		Name:        req.Name,
		Sector:      req.Sector,
		Location:    req.Location,
		RadiusKM:    req.RadiusKM,
		MaxResults:  req.MaxResults,
		Prompt:      req.Prompt,
		SearchType:  req.SearchType,
		NotifyEmail: req.NotifyEmail,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToCampaignResponse(campaign))
}

// List retrieves the tenant's campaigns with live counters.
// GET /api/v1/campaigns
func (h *Handler) List(c *gin.Context) {
	var req transport.ListCampaignsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	campaigns, total, err := h.svc.List(c.Request.Context(), identity.TenantID(), req.Limit, req.Offset)
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.CampaignResponse, 0, len(campaigns))
	for _, campaign := range campaigns {
		items = append(items, transport.ToCampaignResponse(campaign))
	}
	httpkit.OK(c, transport.CampaignListResponse{Items: items, Total: total})
}

// GetByID retrieves a campaign by ID.
// GET /api/v1/campaigns/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, identity, ok := h.campaignID(c)
	if !ok {
		return
	}

	campaign, err := h.svc.Get(c.Request.Context(), id, identity.TenantID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToCampaignResponse(campaign))
}

// Dispatch queues a draft or failed campaign for execution.
// POST /api/v1/campaigns/:id/dispatch
func (h *Handler) Dispatch(c *gin.Context) {
	id, identity, ok := h.campaignID(c)
	if !ok {
		return
	}

	campaign, err := h.svc.Dispatch(c.Request.Context(), id, identity.TenantID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusAccepted, transport.ToCampaignResponse(campaign))
}

// Cancel withdraws a draft or queued campaign.
// POST /api/v1/campaigns/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	id, identity, ok := h.campaignID(c)
	if !ok {
		return
	}

	campaign, err := h.svc.Cancel(c.Request.Context(), id, identity.TenantID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToCampaignResponse(campaign))
}

// ListLeads retrieves the leads a campaign created.
// GET /api/v1/campaigns/:id/leads
func (h *Handler) ListLeads(c *gin.Context) {
	id, identity, ok := h.campaignID(c)
	if !ok {
		return
	}

	leads, err := h.svc.ListLeads(c.Request.Context(), id, identity.TenantID())
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.LeadResponse, 0, len(leads))
	for _, lead := range leads {
		items = append(items, transport.ToLeadResponse(lead))
	}
	httpkit.OK(c, transport.LeadListResponse{Items: items, Total: len(items)})
}

// Export downloads the campaign's leads as CSV, redirecting to a stored
// artifact when object storage is configured.
// GET /api/v1/campaigns/:id/export
func (h *Handler) Export(c *gin.Context) {
	id, identity, ok := h.campaignID(c)
	if !ok {
		return
	}

	result, err := h.exporter.ExportCampaignCSV(c.Request.Context(), id, identity.TenantID())
	if httpkit.HandleError(c, err) {
		return
	}

	if result.URL != "" {
		httpkit.OK(c, gin.H{"url": result.URL, "expiresAt": result.ExpiresAt})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

func (h *Handler) campaignID(c *gin.Context) (uuid.UUID, httpkit.Identity, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.Nil, nil, false
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return uuid.Nil, nil, false
	}
	return id, identity, true
}
