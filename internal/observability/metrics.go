package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DispatchesTotal  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "trigo_dispatch", Name: "dispatches_total", Help: "Successful trider dispatches"})
	DispatchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "trigo_dispatch", Name: "dispatch_failures_total", Help: "Rejected dispatches by precondition"},
		[]string{"reason"},
	)
	SyntheticRequests = promauto.NewCounter(prometheus.CounterOpts{Namespace: "trigo_dispatch", Name: "synthetic_requests_total", Help: "Ride requests produced by the demand generator"})
	InsightsTotal     = promauto.NewCounter(prometheus.CounterOpts{Namespace: "trigo_dispatch", Name: "insights_total", Help: "Advisory insights generated"})
	TridersActive     = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "trigo_dispatch", Name: "triders_active", Help: "Triders not offline"})
	RouteFetchErrors  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "trigo_dispatch", Name: "route_fetch_errors_total", Help: "Directions provider failures"})

	TickDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "trigo_dispatch", Name: "tick_duration_seconds", Help: "Simulator tick latency", Buckets: prometheus.DefBuckets},
		[]string{"simulator"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "trigo_dispatch", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "trigo_dispatch",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
