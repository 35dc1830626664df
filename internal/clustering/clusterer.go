// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package clustering

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"

	"github.com/tomtom215/trustbond/internal/geo"
	"github.com/tomtom215/trustbond/internal/models"
)

// ErrInsufficientData is returned when too few eligible reports remain to
// form a cluster. It is informational, not a failure.
var ErrInsufficientData = errors.New("insufficient data for clustering")

// Config holds the clusterer constants. The DBSCAN parameters themselves
// come from models.ClusteringConfig and are read per run.
type Config struct {
	// Window is how far back reports are fetched for a run.
	Window time.Duration `json:"window"`

	// MinWeight excludes reports below this weight from cluster formation.
	MinWeight float64 `json:"min_weight"`

	// DefaultWeight and DefaultScore stand in for reports stored without a
	// trust snapshot.
	DefaultWeight float64 `json:"default_weight"`
	DefaultScore  int     `json:"default_score"`

	// MinRadiusMeters floors the reported cluster radius.
	MinRadiusMeters float64 `json:"min_radius_meters"`

	// Weighted report count strictly above CriticalAbove is critical,
	// strictly above HighAbove is high, anything else is medium.
	CriticalAbove float64 `json:"critical_above"`
	HighAbove     float64 `json:"high_above"`

	// Average trust at or above HighConfidence is high confidence, at or
	// above MediumConfidence is medium, anything else is low.
	HighConfidence   float64 `json:"high_confidence"`
	MediumConfidence float64 `json:"medium_confidence"`
}

// DefaultConfig returns the production clusterer constants.
func DefaultConfig() Config {
	return Config{
		Window:           24 * time.Hour,
		MinWeight:        0.3,
		DefaultWeight:    0.5,
		DefaultScore:     50,
		MinRadiusMeters:  100,
		CriticalAbove:    8,
		HighAbove:        4,
		HighConfidence:   70,
		MediumConfidence: 40,
	}
}

// Validate checks internal consistency.
func (c Config) Validate() error {
	if c.Window <= 0 {
		return fmt.Errorf("clustering window must be positive")
	}
	if c.MinWeight < 0 || c.MinWeight > 1 {
		return fmt.Errorf("min_weight (%v) must be within [0, 1]", c.MinWeight)
	}
	if c.DefaultWeight < 0 || c.DefaultWeight > 1 {
		return fmt.Errorf("default_weight (%v) must be within [0, 1]", c.DefaultWeight)
	}
	if c.HighAbove > c.CriticalAbove {
		return fmt.Errorf("high_above (%v) must not exceed critical_above (%v)", c.HighAbove, c.CriticalAbove)
	}
	if c.MediumConfidence > c.HighConfidence {
		return fmt.Errorf("medium_confidence (%v) must not exceed high_confidence (%v)", c.MediumConfidence, c.HighConfidence)
	}
	return nil
}

// Stats describes the input of one run.
type Stats struct {
	Input         int
	Fake          int
	Delayed       int
	LowWeight     int
	Eligible      int
	NoisePoints   int
	ClusterCount  int
	CriticalCount int
}

// Clusterer turns recent reports into trust-weighted hotspots.
type Clusterer struct {
	labeler Labeler
	cfg     Config
	now     func() time.Time
}

// New creates a clusterer. A nil labeler selects DBSCAN.
func New(labeler Labeler, cfg Config) *Clusterer {
	if labeler == nil {
		labeler = DBSCAN{}
	}
	return &Clusterer{
		labeler: labeler,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source. Used by tests.
func (c *Clusterer) SetClock(now func() time.Time) {
	c.now = now
}

// Config returns the clusterer constants.
func (c *Clusterer) Config() Config {
	return c.cfg
}

type candidate struct {
	report *models.Report
	point  orb.Point
	weight float64
	score  int
}

// Run clusters reports with params. Fake reports and reports still inside
// their delay window are excluded, and so are reports weighing less than
// MinWeight. Clusters are returned ordered by label and carry the run
// timestamp; RunID is left for the caller.
func (c *Clusterer) Run(reports []*models.Report, params models.ClusteringConfig) ([]models.Cluster, Stats, error) {
	stats := Stats{Input: len(reports)}
	if len(reports) < 2 {
		return nil, stats, ErrInsufficientData
	}

	now := c.now()
	candidates := make([]candidate, 0, len(reports))
	for _, r := range reports {
		switch {
		case r.FlaggedAsFake:
			stats.Fake++
			continue
		case r.DelayActive(now):
			stats.Delayed++
			continue
		}

		weight, score := r.TrustWeight, r.TrustScore
		if weight == 0 {
			// No snapshot was recorded.
			weight = c.cfg.DefaultWeight
			if score == 0 {
				score = c.cfg.DefaultScore
			}
		}
		if weight < c.cfg.MinWeight {
			stats.LowWeight++
			continue
		}
		candidates = append(candidates, candidate{
			report: r,
			point:  geo.Point(r.Location),
			weight: weight,
			score:  score,
		})
	}
	stats.Eligible = len(candidates)
	if len(candidates) < 2 {
		return nil, stats, ErrInsufficientData
	}

	points := make([]orb.Point, len(candidates))
	for i, cand := range candidates {
		points[i] = cand.point
	}
	labels := c.labeler.Label(points, params.Epsilon, params.MinSamples)

	groups := make(map[int][]int)
	maxLabel := Noise
	for i, l := range labels {
		if l == Noise {
			stats.NoisePoints++
			continue
		}
		groups[l] = append(groups[l], i)
		if l > maxLabel {
			maxLabel = l
		}
	}

	clusters := make([]models.Cluster, 0, len(groups))
	for l := 0; l <= maxLabel; l++ {
		members, ok := groups[l]
		if !ok {
			continue
		}
		cl := c.summarize(l, members, candidates, now)
		if cl.RiskLevel == models.RiskCritical {
			stats.CriticalCount++
		}
		clusters = append(clusters, cl)
	}
	stats.ClusterCount = len(clusters)
	return clusters, stats, nil
}

func (c *Clusterer) summarize(label int, members []int, candidates []candidate, now time.Time) models.Cluster {
	points := make([]orb.Point, len(members))
	weights := make([]float64, len(members))
	ids := make([]string, len(members))
	var sumW float64
	var sumScore int
	for i, m := range members {
		cand := candidates[m]
		points[i] = cand.point
		weights[i] = cand.weight
		ids[i] = cand.report.ID
		sumW += cand.weight
		sumScore += cand.score
	}

	center := geo.WeightedCentroid(points, weights)
	radius := math.Max(geo.MaxDistanceMeters(center, points), c.cfg.MinRadiusMeters)
	avgScore := float64(sumScore) / float64(len(members))

	return models.Cluster{
		ClusterID:           label,
		Center:              geo.Location(center),
		Radius:              radius,
		Points:              ids,
		ReportCount:         len(members),
		WeightedReportCount: round(sumW, 2),
		AverageTrustScore:   round(avgScore, 1),
		TrustConfidence:     c.confidence(avgScore),
		RiskLevel:           c.risk(sumW),
		Timestamp:           now,
	}
}

func (c *Clusterer) risk(weighted float64) models.RiskLevel {
	switch {
	case weighted > c.cfg.CriticalAbove:
		return models.RiskCritical
	case weighted > c.cfg.HighAbove:
		return models.RiskHigh
	default:
		return models.RiskMedium
	}
}

func (c *Clusterer) confidence(avg float64) models.TrustConfidence {
	switch {
	case avg >= c.cfg.HighConfidence:
		return models.ConfidenceHigh
	case avg >= c.cfg.MediumConfidence:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
