// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

/*
Package models defines the data structures shared by the TrustBond packages.

Key types:

  - FingerprintRecord: pseudonymous device trust state with bounded score history
  - Report: an incident report with the trust snapshot taken at submission
  - Cluster: a trust-weighted hotspot produced by one clustering run
  - ClusteringConfig: DBSCAN parameters read fresh at every clustering cycle
  - AbuseAnalytics: aggregate trust figures for the admin surface
  - APIResponse: the HTTP response envelope

Errors shared across layers (ErrNotFound, ErrStoreUnavailable) live here so
that the store, the trust ledger and the HTTP handlers agree on them without
import cycles.
*/
package models
