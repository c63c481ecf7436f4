package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	reservations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking_api",
			Name:      "reservations_total",
			Help:      "Count of reservation attempts by outcome.",
		},
		[]string{"outcome"},
	)

	cancellations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking_api",
			Name:      "cancellations_total",
			Help:      "Count of booking cancellations by requester kind.",
		},
		[]string{"by"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking_api",
			Name:      "notifications_total",
			Help:      "Count of cancellation notification mails by outcome.",
		},
		[]string{"outcome"},
	)

	digests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "booking_api",
			Name:      "digests_sent_total",
			Help:      "Count of daily digest mails sent to professors.",
		},
	)

	rateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking_api",
			Name:      "rate_limited_total",
			Help:      "Count of requests rejected by the token bucket, by route.",
		},
		[]string{"route"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(reservations, cancellations, notifications, digests, rateLimited)
	})
}

func IncReservation(outcome string) {
	reservations.WithLabelValues(outcome).Inc()
}

func IncCancellation(byStudent bool) {
	by := "professor"
	if byStudent {
		by = "student"
	}
	cancellations.WithLabelValues(by).Inc()
}

func IncNotification(outcome string) {
	notifications.WithLabelValues(outcome).Inc()
}

func IncDigest() {
	digests.Inc()
}

func IncRateLimited(route string) {
	rateLimited.WithLabelValues(route).Inc()
}
