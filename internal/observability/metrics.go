package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "code", "method"},
	)

	BookingsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_created_total",
			Help: "Bookings created, by payment status outcome",
		},
		[]string{"status"},
	)

	BookingValidationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_validation_failures_total",
			Help: "Booking submissions rejected by capacity or room rules",
		},
	)

	DBTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "booking_db_tx_seconds",
			Help:    "Duration of DB transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	ChatSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "booking_chat_sessions_active",
			Help: "Open support-chat WebSocket sessions",
		},
	)

	ChatMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_chat_messages_sent_total",
			Help: "Chat messages accepted for delivery",
		},
	)

	OutboxLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "booking_outbox_lag_seconds",
			Help: "Age of the oldest unpublished outbox record",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_rate_limit_exceeded_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)
