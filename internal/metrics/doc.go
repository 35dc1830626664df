// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

/*
Package metrics provides the Prometheus collectors for TrustBond.

Collectors are registered with the default registry through promauto and are
exposed by the HTTP server at /metrics:

	curl http://localhost:8470/metrics

Families:

  - trustbond_reports_submitted_total, trustbond_flood_detections_total
  - trustbond_trust_adjustments_total, trustbond_trust_feedback_total
  - trustbond_fingerprints_purged_total
  - trustbond_clustering_cycles_total, trustbond_clustering_duration_seconds,
    trustbond_active_clusters, trustbond_scheduler_consecutive_failures
  - trustbond_store_operation_duration_seconds, trustbond_circuit_breaker_state
  - trustbond_events_published_total
  - trustbond_api_requests_total, trustbond_api_request_duration_seconds

Labels never carry fingerprints or report ids.
*/
package metrics
