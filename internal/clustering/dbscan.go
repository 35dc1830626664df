// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package clustering

import (
	"github.com/paulmach/orb"
)

// Noise is the label of points that belong to no cluster.
const Noise = -1

// Labeler assigns a density cluster label to every point. Labels are
// 0-based and consecutive; Noise marks outliers.
type Labeler interface {
	Label(points []orb.Point, epsilon float64, minSamples int) []int
}

// DBSCAN is the default Labeler. Density is unweighted: a point is a core
// point when at least minSamples points, itself included, lie within
// epsilon (inclusive). Labels follow the order in which core points are
// first reached while scanning the input, so the result is deterministic
// for a fixed input order.
type DBSCAN struct{}

// Label implements Labeler.
func (DBSCAN) Label(points []orb.Point, epsilon float64, minSamples int) []int {
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = Noise
	}
	if len(points) == 0 || epsilon <= 0 {
		return labels
	}

	g := newGrid(points, epsilon)
	hoods := make([][]int, len(points))
	core := make([]bool, len(points))
	for i := range points {
		hoods[i] = g.neighbours(i, epsilon)
		core[i] = len(hoods[i]) >= minSamples
	}

	next := 0
	var stack []int
	for i := range points {
		if labels[i] != Noise || !core[i] {
			continue
		}

		// Expand from i. Border points keep the first label that reaches
		// them; only core points propagate.
		stack = append(stack[:0], i)
		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if labels[p] != Noise {
				continue
			}
			labels[p] = next
			if !core[p] {
				continue
			}
			for _, q := range hoods[p] {
				if labels[q] == Noise {
					stack = append(stack, q)
				}
			}
		}
		next++
	}
	return labels
}
