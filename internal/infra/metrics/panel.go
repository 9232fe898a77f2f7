package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(panelRequestsTotal, panelRequestSeconds) }

var (
	panelRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "panel_requests_total",
			Help: "Panel API requests by endpoint and HTTP status code (0 = transport error).",
		},
		[]string{"endpoint", "code"},
	)

	panelRequestSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "panel_request_duration_seconds",
			Help:    "Panel API request latency.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"endpoint"},
	)
)

func ObservePanelRequest(endpoint string, code int, elapsed time.Duration) {
	panelRequestsTotal.WithLabelValues(norm(endpoint), strconv.Itoa(code)).Inc()
	panelRequestSeconds.WithLabelValues(norm(endpoint)).Observe(elapsed.Seconds())
}
