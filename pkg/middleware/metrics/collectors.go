package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	responseTime = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "response_time",
			Help:    "http response time.",
			Buckets: []float64{0.5, 1, 5, 10, 30, 60},
		},
	)

	totalHttpRequestsToUri = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "total_http_requests_to_uri", Help: "http requests to uri"},
		[]string{"code", "uri", "method"},
	)

	totalHttpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "total_http_requests", Help: "http requests by code, and method"},
		[]string{"code", "method"},
	)

	dispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "iso_dispatch_total", Help: "pipeline dispatches by mode and outcome"},
		[]string{"mode", "outcome"},
	)

	dispatchSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "iso_dispatch_seconds",
			Help:    "time from dispatch to terminal stage.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	extensionsLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "iso_extensions_loaded", Help: "extensions in the registry"},
	)
)

func init() {
	prometheus.MustRegister(
		responseTime,
		totalHttpRequestsToUri,
		totalHttpRequests,
		dispatchTotal,
		dispatchSeconds,
		extensionsLoaded,
	)
}
