package storage

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

func TestParsePointWKT(t *testing.T) {
	tests := []struct {
		name    string
		wkt     string
		wantLat float64
		wantLng float64
		wantErr bool
	}{
		{
			name:    "valid point",
			wkt:     "POINT(-76.456 -12.123)",
			wantLat: -12.123,
			wantLng: -76.456,
		},
		{
			name:    "valid point with whitespace",
			wkt:     "  POINT(-76.456 -12.123)  ",
			wantLat: -12.123,
			wantLng: -76.456,
		},
		{
			name: "zero coordinates",
			wkt:  "POINT(0 0)",
		},
		{
			name:    "empty string",
			wkt:     "",
			wantErr: true,
		},
		{
			name:    "wrong prefix",
			wkt:     "LINESTRING(-76 -12)",
			wantErr: true,
		},
		{
			name:    "missing closing paren",
			wkt:     "POINT(-76.456 -12.123",
			wantErr: true,
		},
		{
			name:    "invalid longitude",
			wkt:     "POINT(not_a_float -12.123)",
			wantErr: true,
		},
		{
			name:    "invalid latitude",
			wkt:     "POINT(-76.456 not_a_float)",
			wantErr: true,
		},
		{
			name:    "too many coordinates",
			wkt:     "POINT(-76.456 -12.123 0)",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := parsePointWKT(tt.wkt)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parsePointWKT(%q) error = %v, wantErr %v", tt.wkt, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if p.Lat != tt.wantLat {
				t.Errorf("lat = %v, want %v", p.Lat, tt.wantLat)
			}
			if p.Lng != tt.wantLng {
				t.Errorf("lng = %v, want %v", p.Lng, tt.wantLng)
			}
		})
	}
}

// fakeRow satisfies pgx.Row by copying fixed values into the scan targets.
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("fakeRow: %d targets for %d values", len(dest), len(r.values))
	}
	for i, v := range r.values {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case **string:
			if v == nil {
				*d = nil
			} else {
				s := v.(string)
				*d = &s
			}
		case *[]string:
			*d = v.([]string)
		case **time.Time:
			if v == nil {
				*d = nil
			} else {
				ts := v.(time.Time)
				*d = &ts
			}
		default:
			return fmt.Errorf("fakeRow: unsupported target %T", d)
		}
	}
	return nil
}

var _ pgx.Row = fakeRow{}

func TestScanStop(t *testing.T) {
	tests := []struct {
		name    string
		row     fakeRow
		wantErr bool
		wantLat float64
		wantLng float64
	}{
		{
			name:    "valid stop",
			row:     fakeRow{values: []any{"S1", "Centro", "POINT(-76.456 -12.123)"}},
			wantLat: -12.123,
			wantLng: -76.456,
		},
		{
			name:    "NULL geometry",
			row:     fakeRow{values: []any{"S2", "Bad", nil}},
			wantErr: true,
		},
		{
			name:    "invalid WKT",
			row:     fakeRow{values: []any{"S3", "Bad", "LINESTRING(0 0, 1 1)"}},
			wantErr: true,
		},
		{
			name:    "no rows",
			row:     fakeRow{err: pgx.ErrNoRows},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stop, err := scanStop(tt.row)
			if (err != nil) != tt.wantErr {
				t.Fatalf("scanStop error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if stop.Location.Lat != tt.wantLat || stop.Location.Lng != tt.wantLng {
				t.Errorf("location = %+v, want (%v, %v)", stop.Location, tt.wantLat, tt.wantLng)
			}
		})
	}
}

func TestScanStop_NoRowsIsDetectable(t *testing.T) {
	_, err := scanStop(fakeRow{err: pgx.ErrNoRows})
	if !errors.Is(err, pgx.ErrNoRows) {
		t.Errorf("err = %v, want pgx.ErrNoRows", err)
	}
}

func TestScanBus_NotStarted(t *testing.T) {
	row := fakeRow{values: []any{
		"B1", "101", "Express", []string{"S1", "S2"},
		nil, nil, "active", nil,
	}}

	bus, err := scanBus(row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bus.CurrentLocation != nil {
		t.Errorf("CurrentLocation = %+v, want nil", bus.CurrentLocation)
	}
	if bus.LastStopPassed != nil {
		t.Errorf("LastStopPassed = %q, want nil", *bus.LastStopPassed)
	}
	if len(bus.PredefinedStops) != 2 {
		t.Errorf("PredefinedStops = %v, want 2 entries", bus.PredefinedStops)
	}
}

func TestScanBus_InProgress(t *testing.T) {
	ts := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	row := fakeRow{values: []any{
		"B1", "101", "Express", []string{"S1", "S2"},
		"POINT(-77.03 -12.05)", "S1", "active", ts,
	}}

	bus, err := scanBus(row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bus.CurrentLocation == nil || bus.CurrentLocation.Lat != -12.05 || bus.CurrentLocation.Lng != -77.03 {
		t.Errorf("CurrentLocation = %+v, want (-12.05, -77.03)", bus.CurrentLocation)
	}
	if bus.LastStopPassed == nil || *bus.LastStopPassed != "S1" {
		t.Errorf("LastStopPassed = %v, want S1", bus.LastStopPassed)
	}
	if bus.LastUpdated == nil || !bus.LastUpdated.Equal(ts) {
		t.Errorf("LastUpdated = %v, want %v", bus.LastUpdated, ts)
	}
}

func TestScanBus_EmptyCursorIsUnset(t *testing.T) {
	row := fakeRow{values: []any{
		"B1", "101", "", []string{"S1"},
		nil, "", "inactive", nil,
	}}

	bus, err := scanBus(row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bus.LastStopPassed != nil {
		t.Errorf("LastStopPassed = %q, want nil", *bus.LastStopPassed)
	}
}
