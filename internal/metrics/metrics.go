package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weather_lookup"

// Metrics holds the Prometheus collectors for upstream calls, the forecast cache
// and the location workflow.
type Metrics struct {
	// labels: service={geocoder,weather}, outcome={success,no_match,upstream_error,parse_error}
	UpstreamRequests *prometheus.CounterVec
	// labels: service={geocoder,weather}
	UpstreamDuration *prometheus.HistogramVec
	// labels: result={hit,miss}
	ForecastCache *prometheus.CounterVec
	// labels: state={Persisted,Invalid}
	Resolutions *prometheus.CounterVec
}

func newMetrics() *Metrics {
	return &Metrics{
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Requests to the geocoding and weather services by outcome.",
		}, []string{"service", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Duration of upstream HTTP requests in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"service"}),
		ForecastCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_cache_total",
			Help:      "Forecast cache lookups by result.",
		}, []string{"result"}),
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "location_resolutions_total",
			Help:      "Location resolution workflow runs by terminal state.",
		}, []string{"state"}),
	}
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(m.UpstreamRequests, m.UpstreamDuration, m.ForecastCache, m.Resolutions)
	return m
}

// NewForTesting returns unregistered metrics so tests can create as many as they need.
func NewForTesting() *Metrics {
	return newMetrics()
}
