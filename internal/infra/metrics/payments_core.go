package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

func init() {
	register(
		paymentsTotal,
		paymentsRevenueTotal,
		paymentInconsistenciesTotal,
		paymentsStalePending,
	)
}

var (
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payment attempts by terminal outcome (completed/failed/pending/rejected).",
		},
		[]string{"status"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "The total monetary value of successful payments, labeled by currency.",
		},
		[]string{"currency"},
	)

	paymentInconsistenciesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_inconsistencies_total",
			Help: "Completed payments whose follow-up step failed, by stage.",
		},
		[]string{"stage"}, // 'renewal', 'compensation'
	)

	paymentsStalePending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "payments_stale_pending",
			Help: "Pending payments older than the reconciler threshold at the last scan.",
		},
	)
)

func IncPayment(status string) {
	paymentsTotal.WithLabelValues(norm(status)).Inc()
}

func AddPaymentRevenue(currency string, amount decimal.Decimal) {
	f, _ := amount.Float64()
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(f)
}

func IncPaymentInconsistency(stage string) {
	paymentInconsistenciesTotal.WithLabelValues(norm(stage)).Inc()
}

func SetStalePendingPayments(n int) {
	paymentsStalePending.Set(float64(n))
}
