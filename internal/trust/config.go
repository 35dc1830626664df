// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package trust

import (
	"fmt"
	"time"
)

// Adjustment reasons recorded in score history. Feedback reasons carry the
// report id after a colon.
const (
	ReasonInitial        = "initial"
	ReasonFlood          = "flood_detection"
	ReasonReportVerified = "report_verified"
	ReasonReportFake     = "report_fake"
	ReasonReportResolved = "report_resolved"

	// ReasonChatEngagement is applied by the external chat service through
	// Ledger.Adjust with Deltas.ChatEngagement; nothing in this module
	// emits it.
	ReasonChatEngagement = "chat_engagement"
)

// FeedbackReason formats a reason that references a report.
func FeedbackReason(base, reportID string) string {
	return base + ":" + reportID
}

// Deltas are the signed score adjustments applied per event.
type Deltas struct {
	Verified  int `json:"verified"`
	Fake      int `json:"fake"`
	Duplicate int `json:"duplicate"`
	Resolved  int `json:"resolved"`

	// ChatEngagement is applied by the external chat service.
	ChatEngagement int `json:"chat_engagement"`
}

// Config holds the trust scoring constants.
type Config struct {
	InitialScore int `json:"initial_score"`
	MinScore     int `json:"min_score"`
	MaxScore     int `json:"max_score"`

	// HistoryLimit is the number of score history entries kept per device.
	HistoryLimit int `json:"history_limit"`

	// Scores below LowTrustThreshold are low trust: their reports are
	// delayed and weighted at LowTrustWeight.
	LowTrustThreshold int     `json:"low_trust_threshold"`
	LowTrustWeight    float64 `json:"low_trust_weight"`

	// Scores at or above HighTrustThreshold count as high trust in analytics.
	HighTrustThreshold int `json:"high_trust_threshold"`

	Deltas Deltas `json:"deltas"`

	// TopOffenders bounds the offender list in analytics.
	TopOffenders int `json:"top_offenders"`

	// RecentHistory is the number of history entries in a device view.
	RecentHistory int `json:"recent_history"`

	// MinPrefixLength is the shortest fingerprint prefix accepted for a
	// device lookup.
	MinPrefixLength int `json:"min_prefix_length"`

	// RetentionMaxAge is how long an untouched record is kept.
	RetentionMaxAge time.Duration `json:"retention_max_age"`
}

// DefaultConfig returns the production trust constants.
func DefaultConfig() Config {
	return Config{
		InitialScore:       50,
		MinScore:           0,
		MaxScore:           100,
		HistoryLimit:       50,
		LowTrustThreshold:  40,
		LowTrustWeight:     0.1,
		HighTrustThreshold: 70,
		Deltas: Deltas{
			Verified:       5,
			Fake:           -20,
			Duplicate:      -10,
			Resolved:       3,
			ChatEngagement: 2,
		},
		TopOffenders:    10,
		RecentHistory:   10,
		MinPrefixLength: 8,
		RetentionMaxAge: 30 * 24 * time.Hour,
	}
}

// Validate checks internal consistency.
func (c Config) Validate() error {
	if c.MinScore >= c.MaxScore {
		return fmt.Errorf("min_score (%d) must be below max_score (%d)", c.MinScore, c.MaxScore)
	}
	if c.InitialScore < c.MinScore || c.InitialScore > c.MaxScore {
		return fmt.Errorf("initial_score (%d) must be within [%d, %d]", c.InitialScore, c.MinScore, c.MaxScore)
	}
	if c.LowTrustThreshold > c.HighTrustThreshold {
		return fmt.Errorf("low_trust_threshold (%d) must not exceed high_trust_threshold (%d)", c.LowTrustThreshold, c.HighTrustThreshold)
	}
	if c.LowTrustWeight < 0 || c.LowTrustWeight > 1 {
		return fmt.Errorf("low_trust_weight (%v) must be within [0, 1]", c.LowTrustWeight)
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("history_limit must be positive")
	}
	if c.TopOffenders <= 0 {
		return fmt.Errorf("top_offenders must be positive")
	}
	if c.RetentionMaxAge <= 0 {
		return fmt.Errorf("retention_max_age must be positive")
	}
	return nil
}

// Clamp bounds score to [MinScore, MaxScore].
func (c Config) Clamp(score int) int {
	if score < c.MinScore {
		return c.MinScore
	}
	if score > c.MaxScore {
		return c.MaxScore
	}
	return score
}

// WeightForScore maps a trust score to a clustering weight: score/MaxScore,
// except that low trust scores get LowTrustWeight.
func (c Config) WeightForScore(score int) float64 {
	if score < c.LowTrustThreshold {
		return c.LowTrustWeight
	}
	return float64(c.Clamp(score)) / float64(c.MaxScore)
}

// WeightForScore applies the default configuration.
func WeightForScore(score int) float64 {
	return DefaultConfig().WeightForScore(score)
}

// FloodConfig configures burst detection.
type FloodConfig struct {
	// Window is how far back a device's reports are considered.
	Window time.Duration `json:"window"`

	// RadiusMeters is the distance within which a prior report counts.
	RadiusMeters float64 `json:"radius_meters"`

	// PriorThreshold is the number of nearby prior reports at which the
	// current submission is a flood.
	PriorThreshold int `json:"prior_threshold"`
}

// DefaultFloodConfig returns 10 minutes, 100 meters, 3 priors.
func DefaultFloodConfig() FloodConfig {
	return FloodConfig{
		Window:         10 * time.Minute,
		RadiusMeters:   100,
		PriorThreshold: 3,
	}
}

// Validate checks the flood configuration.
func (c FloodConfig) Validate() error {
	if c.Window <= 0 {
		return fmt.Errorf("flood window must be positive")
	}
	if c.RadiusMeters <= 0 {
		return fmt.Errorf("flood radius_meters must be positive")
	}
	if c.PriorThreshold <= 0 {
		return fmt.Errorf("flood prior_threshold must be positive")
	}
	return nil
}
