// README: Prometheus counters for promo evaluations.
package promo

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var evaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "carpool",
	Subsystem: "promo",
	Name:      "evaluations_total",
	Help:      "Promo code evaluations by outcome (applied or rejection kind).",
}, []string{"outcome"})

func observeEvaluation(err error) {
	outcome := "applied"
	if err != nil {
		outcome = string(KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	evaluationsTotal.WithLabelValues(outcome).Inc()
}
