package engine

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sapslaj/dynip/pkg/metrics"
)

const MetricSubsystem = "engine"

var (
	// No Subsystem.
	MetricTrackedRecords = metrics.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tracked_records",
			Help: "Number of records known to exist at the provider.",
		},
		[]string{"zone"},
	)
	// Engine Subsystem.
	MetricTicks = metrics.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: MetricSubsystem,
			Name:      "ticks_total",
			Help:      "Poll loop iterations by outcome.",
		},
		[]string{"status"},
	)
	MetricAddressChanges = metrics.NewCounter(
		prometheus.CounterOpts{
			Subsystem: MetricSubsystem,
			Name:      "address_changes_total",
		},
	)
	MetricOperations = metrics.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: MetricSubsystem,
			Name:      "operations_total",
			Help:      "Provider calls by operation and outcome.",
		},
		[]string{"operation", "status"},
	)
	MetricLastTickTimestamp = metrics.NewGauge(
		prometheus.GaugeOpts{
			Subsystem: MetricSubsystem,
			Name:      "last_tick_timestamp",
		},
	)
	MetricTickDurationSeconds = metrics.NewHistogram(
		prometheus.HistogramOpts{
			Subsystem: MetricSubsystem,
			Name:      "tick_duration_seconds",
		},
	)
)

const (
	tickStatusUnchanged    = "unchanged"
	tickStatusChanged      = "changed"
	tickStatusAddressError = "address_error"

	operationStatusSuccess = "success"
	operationStatusFailure = "failure"
	operationStatusError   = "error"
	operationStatusSkipped = "skipped"
)
