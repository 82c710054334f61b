// Package http provides HTTP server infrastructure including the Module interface
// that all HTTP-facing modules implement for route registration.
package http

import (
	"leadintake_backend/platform/config"
	"leadintake_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Module represents a bounded context that can register its HTTP routes.
type Module interface {
	// Name returns the module's identifier for logging purposes.
	Name() string
	// RegisterRoutes mounts the module's routes on the provided router groups.
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext provides shared dependencies for module route registration.
type RouterContext struct {
	// Engine is the root Gin engine.
	Engine *gin.Engine
	// V1 is the public /api/v1 route group.
	V1 *gin.RouterGroup
	// Protected is the tenant-authenticated route group under /api/v1.
	Protected *gin.RouterGroup
	// Admin is the tenant-authenticated /api/v1/admin group.
	Admin *gin.RouterGroup
	// Config is the JWT configuration used by AuthMiddleware.
	Config config.JWTConfig
	// AuthMiddleware resolves the tenant from a bearer token.
	AuthMiddleware gin.HandlerFunc
	// WebhookRateLimiter caps inbound webhook traffic per IP.
	WebhookRateLimiter *httpkit.IPRateLimiter
}
