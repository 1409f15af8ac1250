package app

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iterboard_http_requests_total",
		Help: "HTTP requests served, by path and status.",
	}, []string{"path", "status"})

	trackerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iterboard_tracker_requests_total",
		Help: "Calls made to the tracker API, by operation and outcome.",
	}, []string{"op", "outcome"})

	trackerRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "iterboard_tracker_request_duration_seconds",
		Help:    "Latency of tracker API calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
)

// observeTracker is wired into the tracker client as its Observer.
func observeTracker(op string, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	trackerRequestsTotal.WithLabelValues(op, outcome).Inc()
	trackerRequestDuration.WithLabelValues(op).Observe(duration.Seconds())
}
