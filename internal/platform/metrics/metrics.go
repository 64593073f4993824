// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts HTTP requests by method, route and status.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration observes HTTP request latency.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// RequestsInFlight tracks requests currently being served.
	RequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "HTTP requests currently being served.",
		},
	)

	// GeocodeRequestsTotal counts geocoder lookups by outcome and cache hit.
	GeocodeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocode_requests_total",
			Help: "Total number of geocoding lookups.",
		},
		[]string{"status", "cached"},
	)

	// GeocodeRequestDuration observes geocoder latency.
	GeocodeRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geocode_request_duration_seconds",
			Help:    "Geocoding lookup latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"cached"},
	)

	// SeatBookingsTotal counts seat booking attempts by outcome.
	SeatBookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ride_seat_bookings_total",
			Help: "Seat booking attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// RideTransitionsTotal counts ride status transitions by target status.
	RideTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ride_status_transitions_total",
			Help: "Ride status transitions by target status.",
		},
		[]string{"status"},
	)
)

// TrackGeocodeRequest records one geocoder lookup.
func TrackGeocodeRequest(status string, cached bool, duration time.Duration) {
	cachedStr := strconv.FormatBool(cached)
	GeocodeRequestsTotal.WithLabelValues(status, cachedStr).Inc()
	GeocodeRequestDuration.WithLabelValues(cachedStr).Observe(duration.Seconds())
}
