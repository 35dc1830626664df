// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Intake Metrics
	ReportsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustbond_reports_submitted_total",
			Help: "Total number of report submissions by outcome",
		},
		[]string{"outcome"}, // "accepted", "delayed", "anonymous", "flood", "invalid", "error"
	)

	FloodDetections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trustbond_flood_detections_total",
			Help: "Total number of submissions rejected as floods",
		},
	)

	// Trust Metrics
	TrustAdjustments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustbond_trust_adjustments_total",
			Help: "Total number of trust score adjustments by reason",
		},
		[]string{"reason"},
	)

	TrustFeedback = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustbond_trust_feedback_total",
			Help: "Total number of police feedback actions by action and result",
		},
		[]string{"action", "result"}, // result: "applied", "noop", "anonymous", "conflict", "error"
	)

	FingerprintsPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trustbond_fingerprints_purged_total",
			Help: "Total number of stale fingerprint records deleted by retention",
		},
	)

	RetentionLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trustbond_retention_last_success_timestamp",
			Help: "Unix timestamp of the last successful retention sweep",
		},
	)

	// Clustering Metrics
	ClusteringCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustbond_clustering_cycles_total",
			Help: "Total number of clustering cycles by result",
		},
		[]string{"result"}, // "success", "insufficient_data", "disabled", "error"
	)

	ClusteringDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trustbond_clustering_duration_seconds",
			Help:    "Duration of clustering cycles in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	ClusteringReportsConsidered = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trustbond_clustering_reports_considered",
			Help: "Number of reports fetched for the most recent clustering cycle",
		},
	)

	ActiveClusters = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trustbond_active_clusters",
			Help: "Number of hotspots in the latest snapshot by risk level",
		},
		[]string{"risk_level"},
	)

	SchedulerConsecutiveFailures = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trustbond_scheduler_consecutive_failures",
			Help: "Number of consecutive failed clustering cycles",
		},
	)

	SchedulerLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trustbond_scheduler_last_success_timestamp",
			Help: "Unix timestamp of the last successful clustering cycle",
		},
	)

	// Store Metrics
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trustbond_store_operation_duration_seconds",
			Help:    "Duration of store operations in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)

	StoreOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustbond_store_operation_errors_total",
			Help: "Total number of failed store operations",
		},
		[]string{"operation", "error_type"},
	)

	StoreConflictRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustbond_store_conflict_retries_total",
			Help: "Total number of optimistic transaction retries after a write conflict",
		},
		[]string{"operation"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trustbond_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustbond_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Event Feed Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustbond_events_published_total",
			Help: "Total number of events published by topic and result",
		},
		[]string{"topic", "result"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustbond_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trustbond_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustbond_api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)
)

// RecordSubmission records the outcome of one report submission.
func RecordSubmission(outcome string) {
	ReportsSubmitted.WithLabelValues(outcome).Inc()
	if outcome == "flood" {
		FloodDetections.Inc()
	}
}

// RecordTrustAdjustment records a ledger adjustment. Reasons that carry a
// report id ("report_fake:<id>") are reduced to their base so label
// cardinality stays bounded.
func RecordTrustAdjustment(reason string) {
	TrustAdjustments.WithLabelValues(BaseReason(reason)).Inc()
}

// BaseReason strips any ":<suffix>" from an adjustment reason.
func BaseReason(reason string) string {
	if i := strings.IndexByte(reason, ':'); i >= 0 {
		return reason[:i]
	}
	return reason
}

// RecordFeedback records a police feedback action.
func RecordFeedback(action, result string) {
	TrustFeedback.WithLabelValues(action, result).Inc()
}

// RecordRetentionSweep records a retention purge.
func RecordRetentionSweep(deleted int, err error) {
	if err != nil {
		return
	}
	FingerprintsPurged.Add(float64(deleted))
	RetentionLastSuccess.Set(float64(time.Now().Unix()))
}

// RecordClusteringCycle records a finished clustering cycle.
func RecordClusteringCycle(result string, duration time.Duration, consecutiveFailures int) {
	ClusteringCycles.WithLabelValues(result).Inc()
	ClusteringDuration.Observe(duration.Seconds())
	SchedulerConsecutiveFailures.Set(float64(consecutiveFailures))
	if result != "error" {
		SchedulerLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// UpdateActiveClusters replaces the per-tier hotspot gauge.
func UpdateActiveClusters(byRisk map[string]int) {
	for _, level := range []string{"medium", "high", "critical"} {
		ActiveClusters.WithLabelValues(level).Set(float64(byRisk[level]))
	}
}

// RecordStoreOperation records a store operation metric.
func RecordStoreOperation(operation string, duration time.Duration, err error) {
	StoreOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		StoreOperationErrors.WithLabelValues(operation, errorType).Inc()
	}
}

// RecordStoreConflictRetry records an optimistic transaction retry.
func RecordStoreConflictRetry(operation string) {
	StoreConflictRetries.WithLabelValues(operation).Inc()
}

// RecordCircuitBreakerTransition records a breaker state change. States are
// the gobreaker state strings.
func RecordCircuitBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	var v float64
	switch to {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	CircuitBreakerState.WithLabelValues(name).Set(v)
}

// RecordEventPublished records an event publish attempt.
func RecordEventPublished(topic string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	EventsPublished.WithLabelValues(topic, result).Inc()
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
