// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

// Package geo holds the small-distance approximations used by flood
// detection and clustering.
//
// Points are orb.Point values with X = longitude and Y = latitude, in
// degrees. All distances are approximations that are adequate at the scale
// of a city block and make no attempt at geodesic accuracy.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/tomtom215/trustbond/internal/models"
)

// MetersPerDegree is the flat conversion from degrees to meters.
const MetersPerDegree = 111000.0

// Point converts a location to an orb point.
func Point(loc models.Location) orb.Point {
	return orb.Point{loc.Lng, loc.Lat}
}

// Location converts an orb point back to a location.
func Location(p orb.Point) models.Location {
	return models.Location{Lat: p.Lat(), Lng: p.Lon()}
}

// EquirectangularMeters approximates the distance between a and b by
// scaling the longitude difference with the cosine of the mean latitude.
func EquirectangularMeters(a, b orb.Point) float64 {
	meanLat := (a.Lat() + b.Lat()) / 2 * math.Pi / 180
	x := (b.Lon() - a.Lon()) * math.Cos(meanLat)
	y := b.Lat() - a.Lat()
	return math.Sqrt(x*x+y*y) * MetersPerDegree
}

// DegreeDistance is the planar distance between a and b in raw degrees.
func DegreeDistance(a, b orb.Point) float64 {
	return planar.Distance(a, b)
}

// DegreesToMeters applies the flat conversion.
func DegreesToMeters(deg float64) float64 {
	return deg * MetersPerDegree
}

// WeightedCentroid returns the weight-averaged position of points. When the
// weights sum to zero or less the unweighted mean is returned instead.
// points and weights must be the same length and non-empty.
func WeightedCentroid(points []orb.Point, weights []float64) orb.Point {
	var sumW, x, y float64
	for i, p := range points {
		sumW += weights[i]
		x += p.X() * weights[i]
		y += p.Y() * weights[i]
	}
	if sumW > 0 {
		return orb.Point{x / sumW, y / sumW}
	}

	x, y = 0, 0
	for _, p := range points {
		x += p.X()
		y += p.Y()
	}
	n := float64(len(points))
	return orb.Point{x / n, y / n}
}

// MaxDistanceMeters returns the largest planar degree distance from center to
// any of points, converted with the flat conversion.
func MaxDistanceMeters(center orb.Point, points []orb.Point) float64 {
	var maxDeg float64
	for _, p := range points {
		if d := DegreeDistance(center, p); d > maxDeg {
			maxDeg = d
		}
	}
	return DegreesToMeters(maxDeg)
}
