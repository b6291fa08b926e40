// Package metrics provides Prometheus collectors for tagserver.
//
// Usage:
//
//	// Record a finished HTTP request
//	RecordRequest("/detect", 200, 35*time.Millisecond)
//
//	// Record a successful detection pass
//	RecordDetection("tag36h11", 3, 20*time.Millisecond)
//
//	// Record a rejected or failed detection
//	RecordDetectError("decode")
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts requests by route and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagserver_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "status"},
	)

	// HTTPRequestDuration tracks request latency by route.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tagserver_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"route"},
	)

	// DetectDuration tracks decode plus detection time.
	DetectDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tagserver_detect_duration_seconds",
			Help:    "Duration of image decode and marker detection in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"family"},
	)

	// MarkersDetectedTotal counts markers returned to clients.
	MarkersDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagserver_markers_detected_total",
			Help: "Total number of markers detected",
		},
		[]string{"family"},
	)

	// DetectErrorsTotal counts failed detect requests by error kind.
	DetectErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tagserver_detect_errors_total",
			Help: "Total number of failed detect requests",
		},
		[]string{"kind"},
	)
)

// RecordRequest records a finished HTTP request.
func RecordRequest(route string, status int, d time.Duration) {
	HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// RecordDetection records a successful detection pass.
func RecordDetection(family string, markers int, d time.Duration) {
	DetectDuration.WithLabelValues(family).Observe(d.Seconds())
	MarkersDetectedTotal.WithLabelValues(family).Add(float64(markers))
}

// RecordDetectError records a failed detect request.
func RecordDetectError(kind string) {
	DetectErrorsTotal.WithLabelValues(kind).Inc()
}
