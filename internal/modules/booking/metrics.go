// README: Prometheus counters for bookings.
package booking

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bookingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carpool",
		Subsystem: "booking",
		Name:      "created_total",
		Help:      "Bookings created, split by whether a promo code applied.",
	}, []string{"promo"})

	discountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "carpool",
		Subsystem: "booking",
		Name:      "discount_units_total",
		Help:      "Sum of promo discounts granted, in currency units.",
	})

	cancellationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "carpool",
		Subsystem: "booking",
		Name:      "cancelled_total",
		Help:      "Bookings cancelled by passengers.",
	})
)
