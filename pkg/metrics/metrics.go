package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// WithdrawalSubmissions counts gateway submissions by outcome (success, invalid_code, rejected, submission_failed)
var WithdrawalSubmissions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "console_withdrawal_submissions_total",
		Help: "Total number of withdrawal submissions sent to the transaction gateway",
	},
	[]string{"outcome"},
)

// ValidationFailures counts information-step rejections by error kind
var ValidationFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "console_withdrawal_validation_failures_total",
		Help: "Total number of withdrawal drafts rejected by the amount and destination validator",
	},
	[]string{"kind"},
)

// Gas estimation metrics
var (
	GasEstimateLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "console_gas_estimate_latency_seconds",
			Help:    "Latency in seconds of native gas estimate requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"network"},
	)

	GasEstimatesDiscarded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "console_gas_estimates_discarded_total",
			Help: "Number of gas estimates dropped because a newer request superseded them",
		},
	)
)

// OpenWizards tracks the number of open withdrawal wizard sessions
var OpenWizards = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "console_withdrawal_wizards_open",
		Help: "Number of withdrawal wizard sessions currently open",
	},
)

// DB connection pool metrics
var (
	DBOpenConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "console_db_open_connections",
			Help: "Number of open connections in the DB pool",
		},
		[]string{"db"},
	)

	DBIdleConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "console_db_idle_connections",
			Help: "Number of idle connections in the DB pool",
		},
		[]string{"db"},
	)

	DBInUseConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "console_db_in_use_connections",
			Help: "Number of in-use connections in the DB pool",
		},
		[]string{"db"},
	)
)

func init() {
	prometheus.MustRegister(WithdrawalSubmissions, ValidationFailures)
	prometheus.MustRegister(GasEstimateLatency, GasEstimatesDiscarded, OpenWizards)
	prometheus.MustRegister(DBOpenConns, DBIdleConns, DBInUseConns)
}
