package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/FooledKiwi/busease/internal/geo"
	"github.com/FooledKiwi/busease/internal/storage"
	"github.com/FooledKiwi/busease/internal/tracking"
)

const (
	// upcomingStopsLimit caps the upcoming stops returned by a location update.
	upcomingStopsLimit = 3

	notStartedName  = "Not started"
	unknownBusName  = "Unknown"
	unknownStopName = "Unknown"
	unknownLastStop = "Unknown Stop"
	defaultStatus   = "inactive"
)

// Outcome labels reported to Metrics.
const (
	OutcomeOK          = "ok"
	OutcomeNotFound    = "not_found"
	OutcomeInvalid     = "invalid"
	OutcomePersistence = "persistence_failure"
	OutcomeError       = "error"
)

// Metrics receives engine events. A nil Metrics disables reporting.
type Metrics interface {
	ObserveSearch(outcome string, results int)
	ObserveLocationUpdate(outcome string)
	ObserveCursorAdvance(stops int)
}

// StopRef is a stop identifier with its resolved display name.
type StopRef struct {
	ID   string
	Name string
}

// BusSummary is one bus in a search result.
type BusSummary struct {
	BusID     string
	BusNumber string
	BusName   string

	// LastStop.ID is empty when the journey has not started.
	LastStop StopRef

	Status          string
	CurrentLocation *geo.Point
}

// SearchResult lists buses that can take a rider from Start to End.
type SearchResult struct {
	Start string
	End   string
	Buses []BusSummary
}

// LocationUpdate is the outcome of a GPS report.
type LocationUpdate struct {
	BusID     string
	BusNumber string
	Location  geo.Point

	// LastStopPassed is the cursor after the update; nil if not started.
	LastStopPassed *string

	// Advanced reports whether this update moved the cursor.
	Advanced bool

	Upcoming  []StopRef
	UpdatedAt time.Time
}

// StopProgress describes one stop of a bus route relative to the bus.
type StopProgress struct {
	StopID   string
	Name     string
	Location *geo.Point
	Order    int // 1-based

	// DistanceMeters is nil when either the bus or the stop has no location.
	DistanceMeters *float64

	Passed bool
}

// DistanceLabel formats the distance to whole meters, or "N/A".
func (p StopProgress) DistanceLabel() string {
	if p.DistanceMeters == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.0fm", *p.DistanceMeters)
}

// StatusLabel is "passed" or "upcoming".
func (p StopProgress) StatusLabel() string {
	if p.Passed {
		return "passed"
	}
	return "upcoming"
}

// BusDetails is the full per-stop breakdown of a bus.
type BusDetails struct {
	Bus   storage.Bus
	State tracking.JourneyState
	Stops []StopProgress
}

// LastStop is the answer to "what stop did this bus last pass".
type LastStop struct {
	// Started is false when the bus has not passed any stop; the other
	// fields are then empty.
	Started  bool
	StopID   string
	Name     string
	Location *geo.Point
}

// BusService answers rider queries and ingests GPS reports for buses on
// fixed routes.
//
// Location updates for the same bus are serialized within the process, and
// the cursor never moves to an earlier stop.
type BusService struct {
	store     storage.Store
	locator   *tracking.Locator
	metrics   Metrics
	now       func() time.Time
	locks     *busLocks
	threshold float64
}

// Option configures a BusService.
type Option func(*BusService)

// WithThreshold sets the stop arrival radius in meters.
func WithThreshold(meters float64) Option {
	return func(s *BusService) { s.threshold = meters }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *BusService) { s.metrics = m }
}

// WithClock overrides the time source used for last_updated.
func WithClock(now func() time.Time) Option {
	return func(s *BusService) { s.now = now }
}

// NewBusService creates a BusService over store.
func NewBusService(store storage.Store, opts ...Option) *BusService {
	s := &BusService{
		store:     store,
		now:       func() time.Time { return time.Now().UTC() },
		locks:     newBusLocks(),
		threshold: tracking.DefaultThresholdMeters,
	}
	for _, o := range opts {
		o(s)
	}
	s.locator = tracking.NewLocator(tracking.ResolverFunc(s.resolveStop), s.threshold)
	return s
}

// SearchBuses returns buses whose route passes startName and later endName
// and which have not yet passed startName. Store order is preserved.
//
// Errors:
//   - *QueryError wrapping ErrNotFound if either stop name is unknown.
//   - A wrapped store error on lookup failure.
func (s *BusService) SearchBuses(ctx context.Context, startName, endName string) (*SearchResult, error) {
	res, err := s.searchBuses(ctx, startName, endName)
	s.observeSearch(res, err)
	return res, err
}

func (s *BusService) searchBuses(ctx context.Context, startName, endName string) (*SearchResult, error) {
	start, err := s.store.FindStopByName(ctx, startName)
	if err != nil {
		return nil, fmt.Errorf("service: SearchBuses: find start stop: %w", err)
	}
	end, err := s.store.FindStopByName(ctx, endName)
	if err != nil {
		return nil, fmt.Errorf("service: SearchBuses: find end stop: %w", err)
	}
	if start == nil || end == nil {
		return nil, notFound("SearchBuses", "Start or end destination not found")
	}

	candidates, err := s.store.FindBusesContainingStops(ctx, []string{start.ID, end.ID})
	if err != nil {
		return nil, fmt.Errorf("service: SearchBuses: find buses: %w", err)
	}

	res := &SearchResult{Start: startName, End: endName, Buses: []BusSummary{}}
	for _, b := range candidates {
		cur := tracking.NewCursor(b.PredefinedStops, b.LastStopPassed)
		if !cur.ValidRouteOrder(start.ID, end.ID) || !cur.IsUpcoming(start.ID) {
			continue
		}

		summary := BusSummary{
			BusID:           b.ID,
			BusNumber:       b.Number,
			BusName:         orDefault(b.Name, unknownBusName),
			LastStop:        StopRef{ID: cur.LastPassed(), Name: notStartedName},
			Status:          orDefault(b.Status, defaultStatus),
			CurrentLocation: b.CurrentLocation,
		}
		if cur.Started() {
			last, err := s.store.FindStopByID(ctx, cur.LastPassed())
			if err != nil {
				return nil, fmt.Errorf("service: SearchBuses: resolve last stop of bus %s: %w", b.ID, err)
			}
			if last != nil {
				summary.LastStop.Name = last.Name
			}
		}
		res.Buses = append(res.Buses, summary)
	}

	return res, nil
}

// UpdateBusLocation records a GPS fix for busID and advances its cursor to
// the furthest stop within range, if that is further than the stored one.
// The location and timestamp are written whether or not the cursor moved.
//
// Errors:
//   - *QueryError wrapping ErrInvalidLocation for out-of-range coordinates.
//   - *QueryError wrapping ErrNotFound if the bus does not exist; nothing is written.
//   - *QueryError wrapping ErrPersistence if the store did not record the write.
//   - A wrapped store error if a lookup fails.
func (s *BusService) UpdateBusLocation(ctx context.Context, busID string, lat, lng float64) (*LocationUpdate, error) {
	res, err := s.updateBusLocation(ctx, busID, geo.Point{Lat: lat, Lng: lng})
	s.observeUpdate(err)
	return res, err
}

func (s *BusService) updateBusLocation(ctx context.Context, busID string, fix geo.Point) (*LocationUpdate, error) {
	if !fix.Valid() {
		return nil, &QueryError{
			Op:      "UpdateBusLocation",
			Message: fmt.Sprintf("Invalid coordinates (%g, %g)", fix.Lat, fix.Lng),
			Err:     ErrInvalidLocation,
		}
	}

	unlock := s.locks.lock(busID)
	defer unlock()

	bus, err := s.store.FindBusByID(ctx, busID)
	if err != nil {
		return nil, fmt.Errorf("service: UpdateBusLocation: find bus: %w", err)
	}
	if bus == nil {
		return nil, notFound("UpdateBusLocation", fmt.Sprintf("Bus with ID '%s' not found", busID))
	}

	idx, inRange, err := s.locator.Locate(ctx, fix, bus.PredefinedStops)
	if err != nil {
		return nil, fmt.Errorf("service: UpdateBusLocation: %w", err)
	}

	cur := tracking.NewCursor(bus.PredefinedStops, bus.LastStopPassed)
	before := cur.Position()
	advanced := false
	if inRange {
		cur, advanced = cur.Advance(idx)
	}

	now := s.now()
	upd := storage.BusUpdate{CurrentLocation: fix, LastUpdated: now}
	if advanced {
		last := cur.LastPassed()
		upd.LastStopPassed = &last
	}

	modified, err := s.store.UpdateBusFields(ctx, busID, upd)
	if err != nil {
		log.Printf("service: UpdateBusLocation: bus=%s request=%s: %v", busID, RequestIDFromContext(ctx), err)
	}
	if err != nil || modified == 0 {
		return nil, &QueryError{Op: "UpdateBusLocation", Message: "Failed to update bus location", Err: ErrPersistence}
	}

	if advanced {
		log.Printf("service: bus=%s cell=%s cursor %d -> %d (%s) request=%s",
			busID, fix.Cell(), before, cur.Position(), cur.LastPassed(), RequestIDFromContext(ctx))
		if s.metrics != nil {
			s.metrics.ObserveCursorAdvance(cur.Position() - before)
		}
	}

	res := &LocationUpdate{
		BusID:     bus.ID,
		BusNumber: bus.Number,
		Location:  fix,
		Advanced:  advanced,
		Upcoming:  s.resolveUpcoming(ctx, cur.RemainingAfter(upcomingStopsLimit)),
		UpdatedAt: now,
	}
	if cur.Started() {
		last := cur.LastPassed()
		res.LastStopPassed = &last
	}
	return res, nil
}

// GetBusDetails returns the per-stop breakdown of busID's route.
//
// Errors:
//   - *QueryError wrapping ErrNotFound if the bus does not exist.
//   - A wrapped store error if a lookup fails.
func (s *BusService) GetBusDetails(ctx context.Context, busID string) (*BusDetails, error) {
	bus, err := s.store.FindBusByID(ctx, busID)
	if err != nil {
		return nil, fmt.Errorf("service: GetBusDetails: find bus: %w", err)
	}
	if bus == nil {
		return nil, notFound("GetBusDetails", fmt.Sprintf("Bus with ID '%s' not found", busID))
	}

	cur := tracking.NewCursor(bus.PredefinedStops, bus.LastStopPassed)
	pos := cur.Position()

	stops := make([]StopProgress, 0, len(bus.PredefinedStops))
	for i, stopID := range bus.PredefinedStops {
		p := StopProgress{
			StopID: stopID,
			Name:   unknownStopName,
			Order:  i + 1,
			Passed: i <= pos,
		}

		stop, err := s.store.FindStopByID(ctx, stopID)
		if err != nil {
			return nil, fmt.Errorf("service: GetBusDetails: resolve stop %s: %w", stopID, err)
		}
		if stop != nil {
			loc := stop.Location
			p.Name = stop.Name
			p.Location = &loc
			if bus.CurrentLocation != nil {
				d := bus.CurrentLocation.DistanceTo(loc)
				p.DistanceMeters = &d
			}
		}
		stops = append(stops, p)
	}

	bus.Status = orDefault(bus.Status, defaultStatus)
	return &BusDetails{Bus: *bus, State: cur.State(), Stops: stops}, nil
}

// GetBusByName returns the last stop passed by the bus named busName.
//
// Errors:
//   - *QueryError wrapping ErrNotFound if no bus has that name.
//   - A wrapped store error if a lookup fails.
func (s *BusService) GetBusByName(ctx context.Context, busName string) (*LastStop, error) {
	bus, err := s.store.FindBusByName(ctx, busName)
	if err != nil {
		return nil, fmt.Errorf("service: GetBusByName: find bus: %w", err)
	}
	if bus == nil {
		return nil, notFound("GetBusByName", fmt.Sprintf("Bus with name '%s' not found", busName))
	}
	if bus.LastStopPassed == nil || *bus.LastStopPassed == "" {
		return &LastStop{}, nil
	}

	res := &LastStop{Started: true, StopID: *bus.LastStopPassed, Name: unknownLastStop}
	stop, err := s.store.FindStopByID(ctx, res.StopID)
	if err != nil {
		return nil, fmt.Errorf("service: GetBusByName: resolve stop %s: %w", res.StopID, err)
	}
	if stop != nil {
		loc := stop.Location
		res.Name = stop.Name
		res.Location = &loc
	}
	return res, nil
}

// resolveStop adapts the store to tracking.Resolver.
func (s *BusService) resolveStop(ctx context.Context, stopID string) (geo.Point, bool, error) {
	stop, err := s.store.FindStopByID(ctx, stopID)
	if err != nil || stop == nil {
		return geo.Point{}, false, err
	}
	return stop.Location, true, nil
}

// resolveUpcoming names the given stops, dropping any that cannot be resolved.
func (s *BusService) resolveUpcoming(ctx context.Context, ids []string) []StopRef {
	out := make([]StopRef, 0, len(ids))
	for _, id := range ids {
		stop, err := s.store.FindStopByID(ctx, id)
		if err != nil {
			log.Printf("service: resolve upcoming stop %s: %v", id, err)
			continue
		}
		if stop == nil {
			continue
		}
		out = append(out, StopRef{ID: id, Name: stop.Name})
	}
	return out
}

func (s *BusService) observeSearch(res *SearchResult, err error) {
	if s.metrics == nil {
		return
	}
	if err != nil {
		s.metrics.ObserveSearch(outcome(err), 0)
		return
	}
	s.metrics.ObserveSearch(OutcomeOK, len(res.Buses))
}

func (s *BusService) observeUpdate(err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveLocationUpdate(outcome(err))
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
