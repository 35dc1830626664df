// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

/*
Package services provides suture.Service wrappers for TrustBond components.

Each wrapper translates a component lifecycle into suture's context-aware
Serve(ctx) error:

  - HTTPServerService: ListenAndServe with graceful Shutdown
  - ClusterSchedulerService, RetentionSweeperService: Start/Stop loops

Returning an error from Serve asks the supervisor to restart the service.
*/
package services
