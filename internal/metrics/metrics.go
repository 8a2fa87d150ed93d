package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "defectlens"

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// AI backend metrics
var (
	AIAPICalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_api_calls_total",
			Help:      "Total number of AI API calls",
		},
		[]string{"provider", "status"}, // status is an error code or "ok"
	)

	AIAPIDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ai_api_call_duration_seconds",
			Help:      "AI API call latency distribution",
			Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"provider"},
	)
)

// Workflow metrics
var (
	ImagesSelected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_selected_total",
			Help:      "Total number of image selections",
		},
		[]string{"status"}, // "accepted" or "rejected"
	)

	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Total number of analysis outcomes",
		},
		[]string{"status"}, // "completed", "failed", "rejected" or "stale"
	)

	AnalysesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "analyses_in_flight",
			Help:      "Current number of outstanding analysis requests",
		},
	)

	DefectsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "defects_detected_total",
			Help:      "Total number of defects detected by AI",
		},
		[]string{"kind"},
	)

	PreviewsLive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "previews_live",
			Help:      "Current number of published preview objects",
		},
	)
)
