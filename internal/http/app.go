// Package http wires domain modules into the Gin router.
package http

import (
	"context"

	"leadranker_backend/internal/events"
	"leadranker_backend/platform/config"
	"leadranker_backend/platform/logger"
)

// RouterConfig is the slice of configuration the router itself needs.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker backs the readiness endpoint, typically a DB ping.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App carries the dependencies assembled in main and handed to the router.
type App struct {
	Config   RouterConfig
	Logger   *logger.Logger
	Health   HealthChecker
	EventBus events.Bus
	Modules  []Module
}
