// Package events defines the domain events modules publish. The bus itself
// lives in platform/events; this package re-exports it so modules import a
// single events package.
package events

import (
	platformevents "leadranker_backend/platform/events"
	"leadranker_backend/platform/logger"
)

// InMemoryBus aliases the platform bus implementation.
type InMemoryBus = platformevents.InMemoryBus

func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}
