// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

/*
Package clustering finds incident hotspots in recent reports.

A run drops fake reports, reports still held in the low-trust delay queue
and reports whose trust weight is below 0.3, then labels the rest with a
density Labeler (DBSCAN by default) over raw latitude/longitude degrees.

Density is unweighted. Trust enters afterwards: each cluster's center is
the trust-weighted centroid, its weighted report count is the sum of member
weights, and its risk level is derived from that sum rather than the raw
count, so a burst of low-trust reports cannot produce a critical hotspot.

	c := clustering.New(nil, clustering.DefaultConfig())
	clusters, stats, err := c.Run(reports, models.DefaultClusteringConfig())
	if errors.Is(err, clustering.ErrInsufficientData) {
		// nothing to publish this cycle
	}
*/
package clustering
