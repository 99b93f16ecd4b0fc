package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sw_txn_handler",
			Name:      "messages_received_total",
			Help:      "Kafka messages pulled by the worker",
		},
		[]string{"topic"},
	)

	TransactionsScored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sw_txn_handler",
			Name:      "scored_total",
			Help:      "Successfully scored transactions",
		},
		[]string{"topic"},
	)

	ScoringFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sw_txn_handler",
			Name:      "failed_total",
			Help:      "Failed scoring attempts by reason",
		},
		[]string{"topic", "reason"},
	)

	DLQPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sw_txn_handler",
			Name:      "dlq_total",
			Help:      "Messages sent to DLQ by reason",
		},
		[]string{"topic", "reason"},
	)

	AlertsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sw_txn_handler",
			Name:      "alerts_published_total",
			Help:      "Fraud alerts published to the alerts topic",
		},
		[]string{"topic"},
	)

	ProcessLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sw_txn_handler",
			Name:      "process_duration_seconds",
			Help:      "End-to-end scoring latency per message",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"topic"},
	)

	InflightJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sw_txn_handler",
			Name:      "inflight_jobs",
			Help:      "Number of messages currently being processed (semaphore depth)",
		},
	)

	ModelAccuracy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sw_model",
			Name:      "accuracy",
			Help:      "Accuracy from the latest periodic evaluation",
		},
	)

	ModelAUC = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sw_model",
			Name:      "auc",
			Help:      "AUC from the latest periodic evaluation",
		},
	)
)
