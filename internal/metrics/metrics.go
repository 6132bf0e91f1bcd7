package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scortbrasil_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scortbrasil_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	PaymentCallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scortbrasil_payment_callbacks_total",
			Help: "Payment gateway callbacks by processing outcome",
		},
		[]string{"outcome"},
	)

	LedgerEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scortbrasil_ledger_entries_total",
			Help: "Ledger entries appended, by category",
		},
		[]string{"category"},
	)

	RenewalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scortbrasil_renewals_total",
			Help: "Auto-renewal attempts by result",
		},
		[]string{"result"},
	)

	EntitlementsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scortbrasil_entitlements_expired_total",
			Help: "Entitlements flipped to expired by the sweep",
		},
	)

	CommissionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scortbrasil_commissions_total",
			Help: "Affiliate commissions credited",
		},
	)

	NotificationQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scortbrasil_notification_queue_depth",
			Help: "Pending notifications in the redis queue",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordPaymentCallback(outcome string) {
	PaymentCallbacksTotal.WithLabelValues(outcome).Inc()
}

func RecordLedgerEntry(category string) {
	LedgerEntriesTotal.WithLabelValues(category).Inc()
}

func RecordRenewal(result string) {
	RenewalsTotal.WithLabelValues(result).Inc()
}
