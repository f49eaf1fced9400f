package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Write-through
	StoreWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jcline_store_writes_total",
			Help: "Profile writes by store, field and result",
		},
		[]string{"store", "field", "result"}, // store: local, remote
	)

	Hydrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jcline_hydrations_total",
			Help: "Profile hydrations by outcome",
		},
		[]string{"outcome"}, // loaded, seeded, failed, discarded
	)

	DerivedNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jcline_derived_notifications_total",
			Help: "Notifications produced by new-content derivation",
		},
		[]string{"category"},
	)

	// Catalog
	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jcline_catalog_requests_total",
			Help: "Catalog API requests by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	CatalogRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jcline_catalog_request_duration_seconds",
			Help:    "Catalog API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "jcline_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jcline_api_requests_total",
			Help: "HTTP API requests by method, route and status code",
		},
		[]string{"method", "route", "status"},
	)

	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jcline_websocket_clients",
			Help: "Connected websocket clients",
		},
	)
)

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func RecordStoreWrite(store, field string, err error) {
	StoreWrites.WithLabelValues(store, field, result(err)).Inc()
}

func RecordHydration(outcome string) {
	Hydrations.WithLabelValues(outcome).Inc()
}

func RecordDerived(category string, n int) {
	if n > 0 {
		DerivedNotifications.WithLabelValues(category).Add(float64(n))
	}
}

// RecordCatalogRequest records one catalog call. status is 0 for transport errors.
func RecordCatalogRequest(endpoint string, status int, duration time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	CatalogRequests.WithLabelValues(endpoint, label).Inc()
	CatalogRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func SetBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

func RecordAPIRequest(method, route string, status int) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
