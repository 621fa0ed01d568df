package tracking

import (
	"context"
	"fmt"

	"github.com/FooledKiwi/busease/internal/geo"
)

// DefaultThresholdMeters is how close a bus must be to a stop to count as
// having reached it.
const DefaultThresholdMeters = 200.0

// Resolver looks up the coordinate of a stop.
// It returns ok=false when the stop does not exist.
type Resolver interface {
	ResolveStop(ctx context.Context, stopID string) (p geo.Point, ok bool, err error)
}

// ResolverFunc adapts a plain function to the Resolver interface.
type ResolverFunc func(ctx context.Context, stopID string) (geo.Point, bool, error)

// ResolveStop calls f.
func (f ResolverFunc) ResolveStop(ctx context.Context, stopID string) (geo.Point, bool, error) {
	return f(ctx, stopID)
}

// Locator determines the furthest stop along a route that a GPS fix is
// within range of.
type Locator struct {
	resolver  Resolver
	threshold float64
}

// NewLocator creates a Locator. A non-positive threshold falls back to
// DefaultThresholdMeters.
func NewLocator(resolver Resolver, thresholdMeters float64) *Locator {
	if thresholdMeters <= 0 {
		thresholdMeters = DefaultThresholdMeters
	}
	return &Locator{resolver: resolver, threshold: thresholdMeters}
}

// Threshold returns the in-range distance in meters.
func (l *Locator) Threshold() float64 { return l.threshold }

// Locate scans every stop in order and returns the largest index whose stop
// lies within the threshold of fix. ok is false when no stop is in range.
//
// Stops the resolver cannot find are skipped. Resolver errors abort the scan.
func (l *Locator) Locate(ctx context.Context, fix geo.Point, stops []string) (idx int, ok bool, err error) {
	idx = -1
	for i, stopID := range stops {
		p, found, err := l.resolver.ResolveStop(ctx, stopID)
		if err != nil {
			return -1, false, fmt.Errorf("tracking: Locate: resolve stop %q: %w", stopID, err)
		}
		if !found {
			continue
		}
		if fix.DistanceTo(p) <= l.threshold {
			idx = i
		}
	}
	return idx, idx >= 0, nil
}
