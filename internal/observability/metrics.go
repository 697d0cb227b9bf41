package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinebook_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "code", "method"},
	)

	BookingsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinebook_bookings_created_total",
			Help: "Total bookings created",
		},
	)

	BookingsDeclined = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinebook_bookings_declined_total",
			Help: "Total booking requests declined",
		},
	)

	SeatHoldsReleased = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinebook_seat_holds_released_total",
			Help: "Total seats released by the expiry worker",
		},
	)

	EmailsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinebook_emails_sent_total",
			Help: "Total notification emails sent",
		},
	)

	EmailsFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinebook_emails_failed_total",
			Help: "Total notification emails that failed to send",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinebook_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)
)
