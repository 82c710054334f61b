// Package leads provides the lead intake bounded context module.
// It wires the repository, the assignment engine and the ingestion service.
package leads

import (
	"leadintake_backend/internal/events"
	apphttp "leadintake_backend/internal/http"
	"leadintake_backend/internal/leads/assignment"
	"leadintake_backend/internal/leads/handler"
	"leadintake_backend/internal/leads/ingestion"
	"leadintake_backend/internal/leads/repository"
	"leadintake_backend/platform/config"
	"leadintake_backend/platform/logger"
	"leadintake_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	repo    *repository.Repository
	agents  *repository.AgentRepository
	service *ingestion.Service
}

// NewModule creates the leads module. locker serializes round-robin
// assignment per (tenant, campaign) scope; notifier may be nil.
func NewModule(pool *pgxpool.Pool, locker assignment.ScopeLocker, notifier ingestion.Notifier, eventBus events.Bus, val *validator.Validator, cfg config.IngestionConfig, log *logger.Logger) *Module {
	repo := repository.New(pool)
	agents := repository.NewAgentRepository(pool)

	roster := assignment.NewRoster(agents, assignment.ParseFallbackPolicy(cfg.GetCampaignFallback()), log)
	engine := assignment.NewEngine(roster, locker)
	service := ingestion.New(repo, engine, notifier, eventBus, log)

	return &Module{
		handler: handler.New(service, agents, val),
		repo:    repo,
		agents:  agents,
		service: service,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the ingestion service every source adapter calls.
func (m *Module) Service() *ingestion.Service {
	return m.service
}

// Repository returns the lead store.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// Agents returns the agent and campaign directory.
func (m *Module) Agents() *repository.AgentRepository {
	return m.agents
}

// RegisterRoutes mounts lead routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"))
}

var _ apphttp.Module = (*Module)(nil)
