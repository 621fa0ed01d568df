package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/FooledKiwi/busease/internal/geo"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// queryTimeout is applied to every database query.
const queryTimeout = 5 * time.Second

// pgStore is the pgx-backed implementation of Store. Coordinates live in
// PostGIS GEOMETRY(POINT, 4326) columns.
type pgStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Store backed by the given connection pool.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

const selectStop = `
	SELECT stop_id, stop_name, ST_AsText(geom)
	FROM stops`

const selectBus = `
	SELECT bus_id, bus_number, bus_name, predefined_stops,
	       ST_AsText(current_geom), last_stop_passed, status, last_updated
	FROM buses`

// FindStopByName returns the first stop named name, or (nil, nil).
func (s *pgStore) FindStopByName(ctx context.Context, name string) (*Stop, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	stop, err := scanStop(s.pool.QueryRow(ctx, selectStop+`
		WHERE stop_name = $1
		ORDER BY stop_id
		LIMIT 1`, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: FindStopByName: %w", err)
	}
	return stop, nil
}

// FindStopByID returns the stop identified by id, or (nil, nil).
func (s *pgStore) FindStopByID(ctx context.Context, id string) (*Stop, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	stop, err := scanStop(s.pool.QueryRow(ctx, selectStop+`
		WHERE stop_id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: FindStopByID: %w", err)
	}
	return stop, nil
}

// FindBusByID returns the bus identified by id, or (nil, nil).
func (s *pgStore) FindBusByID(ctx context.Context, id string) (*Bus, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	bus, err := scanBus(s.pool.QueryRow(ctx, selectBus+`
		WHERE bus_id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: FindBusByID: %w", err)
	}
	return bus, nil
}

// FindBusByName returns the first bus named name, or (nil, nil).
func (s *pgStore) FindBusByName(ctx context.Context, name string) (*Bus, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	bus, err := scanBus(s.pool.QueryRow(ctx, selectBus+`
		WHERE bus_name = $1
		ORDER BY bus_id
		LIMIT 1`, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: FindBusByName: %w", err)
	}
	return bus, nil
}

// FindBusesContainingStops returns buses whose predefined_stops contains every
// ID in stopIDs. The GIN index on predefined_stops serves the @> filter.
func (s *pgStore) FindBusesContainingStops(ctx context.Context, stopIDs []string) ([]Bus, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, selectBus+`
		WHERE predefined_stops @> $1::text[]
		ORDER BY bus_id`, stopIDs)
	if err != nil {
		return nil, fmt.Errorf("storage: FindBusesContainingStops: %w", err)
	}
	defer rows.Close()

	var buses []Bus
	for rows.Next() {
		b, err := scanBus(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: FindBusesContainingStops: scan: %w", err)
		}
		buses = append(buses, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: FindBusesContainingStops: %w", err)
	}
	return buses, nil
}

// UpdateBusFields writes the location fields and, when set, advances
// last_stop_passed. The CASE keeps the cursor from moving backwards even if a
// stale update reaches the database after a newer one.
func (s *pgStore) UpdateBusFields(ctx context.Context, id string, u BusUpdate) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `
		UPDATE buses
		SET current_geom = ST_SetSRID(ST_MakePoint($2, $3), 4326),
		    last_updated = $4,
		    last_stop_passed = CASE
		        WHEN $5::text IS NULL THEN last_stop_passed
		        WHEN COALESCE(array_position(predefined_stops, $5::text), 0)
		             > COALESCE(array_position(predefined_stops, last_stop_passed), 0)
		        THEN $5::text
		        ELSE last_stop_passed
		    END
		WHERE bus_id = $1`,
		id, u.CurrentLocation.Lng, u.CurrentLocation.Lat, u.LastUpdated, u.LastStopPassed)
	if err != nil {
		return 0, fmt.Errorf("storage: UpdateBusFields: %w", err)
	}
	return tag.RowsAffected(), nil
}

// scanStop reads one stops row produced by selectStop.
func scanStop(row pgx.Row) (*Stop, error) {
	var (
		s   Stop
		wkt *string
	)
	if err := row.Scan(&s.ID, &s.Name, &wkt); err != nil {
		return nil, err
	}
	if wkt == nil {
		return nil, fmt.Errorf("stop id=%s has NULL geometry (data integrity issue)", s.ID)
	}
	p, err := parsePointWKT(*wkt)
	if err != nil {
		return nil, fmt.Errorf("stop id=%s: parse geometry: %w", s.ID, err)
	}
	s.Location = p
	return &s, nil
}

// scanBus reads one buses row produced by selectBus.
func scanBus(row pgx.Row) (*Bus, error) {
	var (
		b   Bus
		wkt *string
	)
	err := row.Scan(&b.ID, &b.Number, &b.Name, &b.PredefinedStops,
		&wkt, &b.LastStopPassed, &b.Status, &b.LastUpdated)
	if err != nil {
		return nil, err
	}
	if wkt != nil {
		p, err := parsePointWKT(*wkt)
		if err != nil {
			return nil, fmt.Errorf("bus id=%s: parse geometry: %w", b.ID, err)
		}
		b.CurrentLocation = &p
	}
	if b.LastStopPassed != nil && *b.LastStopPassed == "" {
		b.LastStopPassed = nil
	}
	return &b, nil
}

// parsePointWKT parses a WKT POINT string into a geo.Point.
// PostGIS ST_AsText(GEOMETRY(POINT, 4326)) returns "POINT(lng lat)".
func parsePointWKT(wkt string) (geo.Point, error) {
	wkt = strings.TrimSpace(wkt)
	if !strings.HasPrefix(wkt, "POINT(") || !strings.HasSuffix(wkt, ")") {
		return geo.Point{}, fmt.Errorf("unexpected WKT format: %q", wkt)
	}

	inner := wkt[len("POINT(") : len(wkt)-1]
	parts := strings.Fields(inner)
	if len(parts) != 2 {
		return geo.Point{}, fmt.Errorf("unexpected WKT coordinates: %q", inner)
	}

	lng, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("parse lng %q: %w", parts[0], err)
	}

	lat, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("parse lat %q: %w", parts[1], err)
	}

	return geo.Point{Lat: lat, Lng: lng}, nil
}
