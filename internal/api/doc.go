// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

/*
Package api provides the HTTP REST API layer for TrustBond.

Key Components:

  - Router: chi route configuration and middleware stack
  - Handler: request handlers for reports, feedback, clusters and admin
  - Response formatting: the models.APIResponse envelope on every route
  - Error mapping: statusForError turns package sentinels into HTTP codes

API Categories:

1. Reports (/api/v1/reports):
  - Submission (POST /), public listing, lookup by id or reference code
  - Police feedback: mark-fake, verify, resolve, approve-delayed
  - The low-trust review queue

2. Clusters (/api/v1/clusters):
  - Current hotspot snapshot and history
  - Manual refresh (single-flight; 409 while a cycle runs)
  - DBSCAN parameters (GET/PUT /params)

3. Admin (/api/v1/admin):
  - Abuse analytics, low-trust devices, flagged reports, cleanup
  - Device trust lookup by fingerprint prefix

4. Operations:
  - /health with scheduler state
  - /metrics Prometheus exposition

Authentication is the responsibility of the routing layer in front of the
service. Full device fingerprints never leave the API: public views strip
them and admin views mask them.

Error Mapping:

	intake.ErrInvalidSubmission     400 VALIDATION_ERROR
	models.ErrNotFound              404 NOT_FOUND
	intake.ErrFeedbackConflict      409 CONFLICT
	scheduler.ErrCycleInProgress    409 CONFLICT
	intake.ErrFloodDetected         429 FLOOD_DETECTED (with Retry-After)
	models.ErrStoreUnavailable      503 SERVICE_UNAVAILABLE
	anything else                   500 INTERNAL_ERROR
*/
package api
