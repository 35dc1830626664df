// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package models

import "time"

// Location is a WGS84 coordinate in decimal degrees.
type Location struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lng float64 `json:"lng" validate:"longitude"`
}

// ScoreEntry is one step of a fingerprint's score history.
type ScoreEntry struct {
	Score      int       `json:"score"`
	Adjustment int       `json:"adjustment"`
	Reason     string    `json:"reason"`
	Timestamp  time.Time `json:"timestamp"`
}

// FingerprintRecord is the trust state of one pseudonymous device.
//
// TrustScore is always within [0, 100]. ScoreHistory is ordered oldest first
// and holds at most the most recent entries allowed by the ledger.
type FingerprintRecord struct {
	Fingerprint        string       `json:"fingerprint"`
	TrustScore         int          `json:"trust_score"`
	ReportCount        int          `json:"report_count"`
	VerifiedCount      int          `json:"verified_count"`
	FakeCount          int          `json:"fake_count"`
	DuplicateCount     int          `json:"duplicate_count"`
	LastReportTime     *time.Time   `json:"last_report_time,omitempty"`
	LastReportLocation *Location    `json:"last_report_location,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
	ScoreHistory       []ScoreEntry `json:"score_history"`
}

// TrustDistribution counts devices per score band.
type TrustDistribution struct {
	VeryLow  int `json:"very_low"`
	Low      int `json:"low"`
	Medium   int `json:"medium"`
	High     int `json:"high"`
	VeryHigh int `json:"very_high"`
}

// OffenderSummary describes a device with confirmed fake reports. The
// fingerprint is always masked.
type OffenderSummary struct {
	FingerprintMasked string `json:"fingerprint_masked"`
	TrustScore        int    `json:"trust_score"`
	FakeCount         int    `json:"fake_count"`
	DuplicateCount    int    `json:"duplicate_count"`
	ReportCount       int    `json:"report_count"`
}

// AbuseAnalytics aggregates trust state across all known devices.
type AbuseAnalytics struct {
	TotalFingerprints int               `json:"total_fingerprints"`
	LowTrustCount     int               `json:"low_trust_count"`
	MediumTrustCount  int               `json:"medium_trust_count"`
	HighTrustCount    int               `json:"high_trust_count"`
	TopOffenders      []OffenderSummary `json:"top_offenders"`
	Distribution      TrustDistribution `json:"trust_distribution"`
	GeneratedAt       time.Time         `json:"generated_at"`
}

// DeviceTrustInfo is the admin view of one device. The fingerprint is masked
// and only the tail of the score history is included.
type DeviceTrustInfo struct {
	// Fingerprint is the full hash, kept for server-side lookups only.
	Fingerprint       string       `json:"-"`
	FingerprintMasked string       `json:"fingerprint_masked"`
	TrustScore        int          `json:"trust_score"`
	TrustWeight       float64      `json:"trust_weight"`
	ReportCount       int          `json:"report_count"`
	VerifiedCount     int          `json:"verified_count"`
	FakeCount         int          `json:"fake_count"`
	DuplicateCount    int          `json:"duplicate_count"`
	LastReportTime    *time.Time   `json:"last_report_time,omitempty"`
	LastActivity      time.Time    `json:"last_activity"`
	CreatedAt         time.Time    `json:"created_at"`
	RecentHistory     []ScoreEntry `json:"recent_history"`
}
