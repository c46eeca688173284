// Package metrics exposes Prometheus instrumentation for the booking core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LockAcquisitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skybook_lock_acquisitions_total",
		Help: "Lock acquisition attempts by outcome (acquired, contention, error).",
	}, []string{"outcome"})

	LockWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "skybook_lock_wait_seconds",
		Help:    "Time spent waiting to acquire a seat lock.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	BookingsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skybook_bookings_processed_total",
		Help: "ProcessBooking outcomes (created, replayed, unavailable, conflict, error).",
	}, []string{"outcome"})

	HoldsReleased = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skybook_holds_released_total",
		Help: "Seat hold releases by reason (CANCELLED, EXPIRED, ROLLBACK).",
	}, []string{"reason"})

	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "skybook_sweep_duration_seconds",
		Help:    "Duration of hold-expiry sweeper passes.",
		Buckets: prometheus.DefBuckets,
	})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skybook_http_request_duration_seconds",
		Help:    "HTTP request latency by path and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)
