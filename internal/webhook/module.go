package webhook

import (
	apphttp "leadintake_backend/internal/http"
)

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	keys    KeyLookup
}

func NewModule(handler *Handler, keys KeyLookup) *Module {
	return &Module{handler: handler, keys: keys}
}

func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts webhook routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	limited := ctx.V1.Group("/webhook")
	if ctx.WebhookRateLimiter != nil {
		limited.Use(ctx.WebhookRateLimiter.RateLimit())
	}

	// Facebook page webhook (verify token handshake, no key)
	limited.GET("/facebook", m.handler.HandleFacebookVerify)
	limited.POST("/facebook", m.handler.HandleFacebookEvent)

	// Generic lead webhook (API key auth)
	keyed := limited.Group("")
	keyed.Use(APIKeyAuthMiddleware(m.keys))
	keyed.POST("/leads", m.handler.HandleLeadSubmission)

	keys := ctx.Admin.Group("/webhook/keys")
	keys.POST("", m.handler.HandleCreateAPIKey)
	keys.GET("", m.handler.HandleListAPIKeys)
	keys.DELETE("/:keyId", m.handler.HandleRevokeAPIKey)

	pages := ctx.Admin.Group("/facebook/pages")
	pages.POST("", m.handler.HandleConnectPage)
	pages.DELETE("/:pageId", m.handler.HandleDisconnectPage)
}

var _ apphttp.Module = (*Module)(nil)
