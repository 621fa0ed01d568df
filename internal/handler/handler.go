package handler

import (
	"context"

	"github.com/FooledKiwi/busease/internal/service"
)

// BusQueryEngine is the engine surface the HTTP handlers call.
// *service.BusService satisfies it.
type BusQueryEngine interface {
	SearchBuses(ctx context.Context, startName, endName string) (*service.SearchResult, error)
	UpdateBusLocation(ctx context.Context, busID string, lat, lng float64) (*service.LocationUpdate, error)
	GetBusDetails(ctx context.Context, busID string) (*service.BusDetails, error)
	GetBusByName(ctx context.Context, busName string) (*service.LastStop, error)
}

// Handler holds the domain dependencies for all HTTP handlers.
// Individual methods are registered as gin handler functions.
type Handler struct {
	buses BusQueryEngine
}

// New creates a Handler with the given engine.
func New(buses BusQueryEngine) *Handler {
	return &Handler{buses: buses}
}
