// Package campaigns provides the lead-generation campaign bounded context:
// campaign configuration, dispatch onto the task queue, the worker-side run
// pipeline, and the stuck-campaign monitor.
package campaigns

import (
	"leadgen_backend/internal/campaigns/handler"
	"leadgen_backend/internal/campaigns/repository"
	"leadgen_backend/internal/campaigns/service"
	"leadgen_backend/internal/events"
	"leadgen_backend/internal/exports"
	apphttp "leadgen_backend/internal/http"
	"leadgen_backend/platform/logger"
	"leadgen_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the campaigns bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the campaigns module for the API server.
func NewModule(pool *pgxpool.Pool, dispatcher service.Dispatcher, exporter *exports.Service, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, dispatcher, bus, log)
	h := handler.New(svc, exporter, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "campaigns"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts campaign routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/campaigns")
	group.POST("", m.handler.Create)
	group.GET("", m.handler.List)
	group.GET("/:id", m.handler.GetByID)
	group.POST("/:id/dispatch", m.handler.Dispatch)
	group.POST("/:id/cancel", m.handler.Cancel)
	group.GET("/:id/leads", m.handler.ListLeads)
	group.GET("/:id/export", m.handler.Export)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
