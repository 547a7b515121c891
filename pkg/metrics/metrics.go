package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// TransactionsProcessed counts routed transactions by final outcome
// (executed, rejected, pending_review, cancelled).
var TransactionsProcessed = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bankcore_transactions_processed_total",
		Help: "Total number of transactions processed by the router",
	},
	[]string{"outcome"},
)

// RiskAssessments counts risk assessments by resulting level.
var RiskAssessments = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bankcore_risk_assessments_total",
		Help: "Total number of risk assessments by level",
	},
	[]string{"level"},
)

// ClearingLatency records latency distribution for cross-bank clearing calls.
var ClearingLatency = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "bankcore_clearing_latency_seconds",
		Help:    "Latency in seconds for interbank clearing settlement",
		Buckets: prometheus.DefBuckets,
	},
)

// AlertsPublished counts alerts published to the bus by type.
var AlertsPublished = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bankcore_alerts_published_total",
		Help: "Total number of alerts published to the alert bus",
	},
	[]string{"type"},
)

// Bank connectivity metrics
var (
	BankProbeLatency = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bankcore_bank_probe_latency_ms",
			Help: "Last measured probe latency per bank in milliseconds",
		},
		[]string{"bank"},
	)

	BankConnected = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bankcore_bank_connected",
			Help: "Whether the connection to a bank is currently healthy (1) or not (0)",
		},
		[]string{"bank"},
	)
)

func init() {
	prometheus.MustRegister(TransactionsProcessed, RiskAssessments, ClearingLatency)
	prometheus.MustRegister(AlertsPublished, BankProbeLatency, BankConnected)
}
