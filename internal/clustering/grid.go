// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package clustering

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// cellKey is a grid cell coordinate.
type cellKey struct {
	X, Y int
}

// grid divides the plane into square cells of side cellSize degrees so that
// an epsilon neighbourhood query only visits the 3x3 block of cells around
// the query point instead of every point.
//
// Time complexity:
//   - Build: O(n)
//   - Neighbours: O(k) where k = points in the surrounding cells
type grid struct {
	points   []orb.Point
	cells    map[cellKey][]int
	cellSize float64
}

// newGrid indexes points. cellSize must be positive.
func newGrid(points []orb.Point, cellSize float64) *grid {
	g := &grid{
		points:   points,
		cells:    make(map[cellKey][]int, len(points)),
		cellSize: cellSize,
	}
	for i, p := range points {
		k := g.cellOf(p)
		g.cells[k] = append(g.cells[k], i)
	}
	return g
}

func (g *grid) cellOf(p orb.Point) cellKey {
	return cellKey{
		X: int(math.Floor(p.X() / g.cellSize)),
		Y: int(math.Floor(p.Y() / g.cellSize)),
	}
}

// neighbours returns the indices of all points within radius of point i,
// including i itself, in ascending order. radius must not exceed the cell
// size.
func (g *grid) neighbours(i int, radius float64) []int {
	p := g.points[i]
	center := g.cellOf(p)

	var out []int
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for _, j := range g.cells[cellKey{X: center.X + dx, Y: center.Y + dy}] {
				if planar.Distance(p, g.points[j]) <= radius {
					out = append(out, j)
				}
			}
		}
	}
	sort.Ints(out)
	return out
}
