// Package metrics exposes Prometheus instruments for the bus query engine
// and its HTTP surface.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	LocationUpdates *prometheus.CounterVec // result label: ok|not_found|invalid|persistence_failure|error
	CursorAdvances  prometheus.Counter
	AdvanceStops    prometheus.Histogram

	Searches      *prometheus.CounterVec // result label, same values as LocationUpdates
	SearchResults prometheus.Histogram

	RequestDuration *prometheus.HistogramVec

	StopThreshold prometheus.Gauge // meters
	StoreInfo     *prometheus.GaugeVec
}

// NewCollector builds a Collector on its own registry and records the static
// configuration gauges.
func NewCollector(storeDriver string, thresholdMeters float64) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		LocationUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "busease_location_updates_total",
			Help: "Location reports processed, by result.",
		}, []string{"result"}),
		CursorAdvances: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busease_cursor_advances_total",
			Help: "Location reports that moved a bus past at least one stop.",
		}),
		AdvanceStops: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "busease_cursor_advance_stops",
			Help:    "Number of stops a single report moved the cursor forward.",
			Buckets: []float64{1, 2, 3, 5, 8, 13},
		}),
		Searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "busease_searches_total",
			Help: "Bus searches served, by result.",
		}, []string{"result"}),
		SearchResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "busease_search_results",
			Help:    "Buses returned per successful search.",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "busease_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}, []string{"method", "route", "status"}),
		StopThreshold: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "busease_stop_threshold_meters",
			Help: "Arrival radius around a stop.",
		}),
		StoreInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "busease_store_info",
			Help: "Always 1; the driver label names the active store backend.",
		}, []string{"driver"}),
	}

	reg.MustRegister(
		c.LocationUpdates, c.CursorAdvances, c.AdvanceStops,
		c.Searches, c.SearchResults,
		c.RequestDuration,
		c.StopThreshold, c.StoreInfo,
	)

	c.StopThreshold.Set(thresholdMeters)
	c.StoreInfo.WithLabelValues(storeDriver).Set(1)

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// ObserveSearch records a search outcome and, on success, its result count.
func (c *Collector) ObserveSearch(outcome string, results int) {
	c.Searches.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		c.SearchResults.Observe(float64(results))
	}
}

func (c *Collector) ObserveLocationUpdate(outcome string) {
	c.LocationUpdates.WithLabelValues(outcome).Inc()
}

func (c *Collector) ObserveCursorAdvance(stops int) {
	c.CursorAdvances.Inc()
	c.AdvanceStops.Observe(float64(stops))
}

// ObserveRequest records one HTTP request. route should be the matched
// pattern, not the raw path.
func (c *Collector) ObserveRequest(method, route, status string, d time.Duration) {
	c.RequestDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}
