package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/FooledKiwi/busease/internal/geo"
	"github.com/FooledKiwi/busease/internal/handler"
	"github.com/FooledKiwi/busease/internal/metrics"
	"github.com/FooledKiwi/busease/internal/service"
	"github.com/FooledKiwi/busease/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ---------------------------------------------------------------------------
// Minimal stub: one stop, one bus, no database.
// ---------------------------------------------------------------------------

type stubStore struct{}

var stubStop = storage.Stop{ID: "S1", Name: "Central", Location: geo.Point{Lat: 10, Lng: 20}}

func (stubStore) FindStopByName(_ context.Context, name string) (*storage.Stop, error) {
	if name == stubStop.Name {
		s := stubStop
		return &s, nil
	}
	return nil, nil
}

func (stubStore) FindStopByID(_ context.Context, id string) (*storage.Stop, error) {
	if id == stubStop.ID {
		s := stubStop
		return &s, nil
	}
	return nil, nil
}

func (stubStore) FindBusByID(_ context.Context, id string) (*storage.Bus, error) {
	if id != "B1" {
		return nil, nil
	}
	return &storage.Bus{ID: "B1", Number: "42", Name: "Blue", PredefinedStops: []string{"S1"}}, nil
}

func (s stubStore) FindBusByName(ctx context.Context, name string) (*storage.Bus, error) {
	if name != "Blue" {
		return nil, nil
	}
	return s.FindBusByID(ctx, "B1")
}

func (stubStore) FindBusesContainingStops(_ context.Context, _ []string) ([]storage.Bus, error) {
	return nil, nil
}

func (stubStore) UpdateBusFields(_ context.Context, _ string, _ storage.BusUpdate) (int64, error) {
	return 1, nil
}

// buildTestEngine replicates the wiring of app.New without a real store.
func buildTestEngine() (*gin.Engine, *metrics.Collector) {
	m := metrics.NewCollector("stub", 200)
	svc := service.NewBusService(storage.NewCachedStore(stubStore{}, 16, time.Minute), service.WithMetrics(m))
	return NewRouter(handler.New(svc), m, 10*time.Second), m
}

func get(r *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

// ---------------------------------------------------------------------------
// Smoke tests: routes are registered and reachable.
// ---------------------------------------------------------------------------

func TestSmoke_HealthEndpoint(t *testing.T) {
	r, _ := buildTestEngine()

	if w := get(r, http.MethodGet, "/health"); w.Code != http.StatusOK {
		t.Errorf("/health: status = %d, want 200", w.Code)
	}
}

func TestSmoke_BusRoutesRegistered(t *testing.T) {
	r, _ := buildTestEngine()

	for _, tc := range []struct {
		method, target string
		wantSuccess    bool
	}{
		{http.MethodGet, "/api/buses/search?start=Central&end=Nowhere", false},
		{http.MethodGet, "/api/buses/B1", true},
		{http.MethodGet, "/api/buses/by-name/Blue", true},
		{http.MethodPost, "/api/buses/B1/location?lat=10&lng=20", true},
	} {
		w := get(r, tc.method, tc.target)
		if w.Code != http.StatusOK {
			t.Errorf("%s %s: status = %d, want 200", tc.method, tc.target, w.Code)
			continue
		}
		var env struct {
			Success bool `json:"success"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Errorf("%s %s: body is not an envelope: %v", tc.method, tc.target, err)
			continue
		}
		if env.Success != tc.wantSuccess {
			t.Errorf("%s %s: success = %v, want %v", tc.method, tc.target, env.Success, tc.wantSuccess)
		}
		if w.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s %s: no X-Request-ID header", tc.method, tc.target)
		}
	}
}

func TestSmoke_MetricsReflectTraffic(t *testing.T) {
	r, _ := buildTestEngine()

	get(r, http.MethodPost, "/api/buses/B1/location?lat=10&lng=20")
	w := get(r, http.MethodGet, "/metrics")

	if w.Code != http.StatusOK {
		t.Fatalf("/metrics: status = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		`busease_location_updates_total{result="ok"} 1`,
		"busease_cursor_advances_total 1",
		`route="/api/buses/:busId/location"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("/metrics missing %q", want)
		}
	}
}
