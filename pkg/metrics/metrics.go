package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// BalanceReadsTotal counts completed balance reads by outcome
	// ("ok" / "error").
	BalanceReadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_monitor_balance_reads_total",
			Help: "Completed balance reads by outcome.",
		},
		[]string{"outcome"},
	)

	// EndpointRequestsTotal counts per-endpoint RPC attempts by outcome.
	EndpointRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_monitor_endpoint_requests_total",
			Help: "Per-endpoint RPC attempts by outcome.",
		},
		[]string{"endpoint", "outcome"},
	)

	// SnapshotAvailableLamports is the spendable balance of the last
	// published snapshot.
	SnapshotAvailableLamports = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wallet_monitor_snapshot_available_lamports",
			Help: "Spendable lamports of the last published balance snapshot.",
		},
	)

	// ConsecutiveReadFailures is the current run of failed poll reads.
	ConsecutiveReadFailures = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wallet_monitor_consecutive_read_failures",
			Help: "Consecutive failed balance reads for the watched target.",
		},
	)

	// PaymentsTotal counts fee payment attempts by terminal status.
	PaymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_monitor_payments_total",
			Help: "Fee payment attempts by terminal status.",
		},
		[]string{"status"},
	)
)

// MustRegisterMetrics registers all service metrics with the default
// prometheus registry. Call once at startup.
func MustRegisterMetrics() {
	prometheus.MustRegister(
		BalanceReadsTotal,
		EndpointRequestsTotal,
		SnapshotAvailableLamports,
		ConsecutiveReadFailures,
		PaymentsTotal,
	)
}
