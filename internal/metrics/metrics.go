package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReviewCallsTotal tracks reviewer invocations per credential and result
	ReviewCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "governor_review_calls_total",
			Help: "Total number of reviewer service calls",
		},
		[]string{"credential", "result"},
	)

	// RotationsTotal tracks credential rotations per trigger category
	RotationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "governor_rotations_total",
			Help: "Total number of credential rotations",
		},
		[]string{"category"},
	)

	// BackoffSeconds tracks time spent sleeping on capacity failures
	BackoffSeconds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "governor_backoff_seconds_total",
			Help: "Total seconds spent in capacity backoff",
		},
	)

	// CallLatency tracks reviewer call latency
	CallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "governor_call_latency_seconds",
			Help:    "Reviewer call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"credential"},
	)

	// AuditRecordsWritten tracks audit records appended to shards
	AuditRecordsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "governor_audit_records_written_total",
			Help: "Total number of audit records written",
		},
	)

	// ShardsConsolidated tracks shards folded into history
	ShardsConsolidated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "governor_shards_consolidated_total",
			Help: "Total number of shards merged into history",
		},
	)
)
