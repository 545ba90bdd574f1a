package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(premiumChecksTotal, gateDecisionsTotal) }

var (
	premiumChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "premium_checks_total",
			Help: "Premium status resolutions by result and source.",
		},
		[]string{"premium", "source"},
	)

	gateDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feature_gate_decisions_total",
			Help: "Feature gate decisions by feature and decision.",
		},
		[]string{"feature", "decision"},
	)
)

func IncPremiumCheck(isPremium bool, source string) {
	premiumChecksTotal.WithLabelValues(strconv.FormatBool(isPremium), norm(source)).Inc()
}

func IncGateDecision(feature, decision string) {
	gateDecisionsTotal.WithLabelValues(norm(feature), norm(decision)).Inc()
}
