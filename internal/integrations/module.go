package integrations

import (
	apphttp "leadintake_backend/internal/http"
)

// Module exposes integration settings over HTTP.
type Module struct {
	handler *Handler
}

func NewModule(handler *Handler) *Module {
	return &Module{handler: handler}
}

func (m *Module) Name() string {
	return "integrations"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	g := ctx.Protected.Group("/integrations")
	g.GET("", m.handler.HandleList)
	g.PUT("/:kind", m.handler.HandleUpsert)
	g.POST("/:id/sync", m.handler.HandleSync)
}

var _ apphttp.Module = (*Module)(nil)
