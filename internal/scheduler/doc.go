// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

// Package scheduler runs the periodic background jobs: the clustering cycle
// that rebuilds the hotspot snapshot, and the retention sweep that purges
// stale device records.
//
// Both jobs follow the same lifecycle. Start launches a loop goroutine that
// runs once immediately and then on a ticker; Stop closes the loop and waits
// for it. The supervisor wraps each job as a suture service.
//
// Clustering is single-flight: a cycle started through RunOnce while
// another is in flight fails fast with ErrCycleInProgress rather than
// queueing behind it.
package scheduler
