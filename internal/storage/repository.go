// Package storage provides typed Stop/Bus records and the Store backends
// (PostgreSQL/PostGIS and MongoDB) the bus query engine runs against.
package storage

import (
	"context"
	"time"

	"github.com/FooledKiwi/busease/internal/geo"
)

// Stop is a named point on one or more bus routes. Stops are immutable once
// provisioned.
type Stop struct {
	ID       string
	Name     string
	Location geo.Point
}

// Bus is a vehicle running a fixed, ordered sequence of stops.
type Bus struct {
	ID     string
	Number string
	Name   string

	// PredefinedStops is the route; index order is travel order.
	PredefinedStops []string

	// CurrentLocation is nil until the first location report.
	CurrentLocation *geo.Point

	// LastStopPassed is nil until the bus reaches its first stop.
	LastStopPassed *string

	Status      string
	LastUpdated *time.Time
}

// BusUpdate is the partial update applied by a location report.
type BusUpdate struct {
	CurrentLocation geo.Point
	LastUpdated     time.Time

	// LastStopPassed is left untouched when nil. Backends only apply it when
	// it lies further along PredefinedStops than the stored value.
	LastStopPassed *string
}

// Store defines the lookups and writes the bus query engine needs.
// Lookups return (nil, nil) when nothing matches.
type Store interface {
	// FindStopByName returns the first stop whose name matches exactly.
	FindStopByName(ctx context.Context, name string) (*Stop, error)

	// FindStopByID returns the stop with the given identifier.
	FindStopByID(ctx context.Context, id string) (*Stop, error)

	// FindBusByID returns the bus with the given identifier.
	FindBusByID(ctx context.Context, id string) (*Bus, error)

	// FindBusByName returns the first bus whose display name matches exactly.
	FindBusByName(ctx context.Context, name string) (*Bus, error)

	// FindBusesContainingStops returns every bus whose route contains all of
	// stopIDs, in any order.
	FindBusesContainingStops(ctx context.Context, stopIDs []string) ([]Bus, error)

	// UpdateBusFields applies u to the bus and reports how many records were
	// modified.
	UpdateBusFields(ctx context.Context, id string, u BusUpdate) (modified int64, err error)
}
