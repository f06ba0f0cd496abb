package http

import (
	"leadranker_backend/platform/config"

	"github.com/gin-gonic/gin"
)

// Module is a domain module that mounts its own HTTP routes. The router
// iterates over registered modules so it never has to know individual
// endpoints.
type Module interface {
	// Name identifies the module in startup logs.
	Name() string
	// RegisterRoutes mounts the module's routes on the shared groups.
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext bundles what modules need during route registration.
type RouterContext struct {
	Engine *gin.Engine
	// V1 is the /api/v1 group. Webhook and public ingest endpoints mount
	// here: they authenticate by signature or API key, not JWT.
	V1 *gin.RouterGroup
	// Protected is the JWT-authenticated group under /api/v1.
	Protected *gin.RouterGroup
	// Config scopes modules to the JWT settings only.
	Config config.JWTConfig
	// AuthMiddleware lets a module guard extra groups with the same auth.
	AuthMiddleware gin.HandlerFunc
}
