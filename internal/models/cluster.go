// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package models

import "time"

// RiskLevel tiers a hotspot by its weighted report count.
type RiskLevel string

const (
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// TrustConfidence tiers a hotspot by the mean trust score of its reports.
type TrustConfidence string

const (
	ConfidenceLow    TrustConfidence = "low"
	ConfidenceMedium TrustConfidence = "medium"
	ConfidenceHigh   TrustConfidence = "high"
)

// Cluster is one trust-weighted hotspot. ClusterID is only unique within
// RunID.
type Cluster struct {
	ClusterID           int             `json:"cluster_id"`
	RunID               string          `json:"run_id"`
	Center              Location        `json:"center"`
	Radius              float64         `json:"radius"`
	Points              []string        `json:"points"`
	ReportCount         int             `json:"report_count"`
	WeightedReportCount float64         `json:"weighted_report_count"`
	AverageTrustScore   float64         `json:"average_trust_score"`
	TrustConfidence     TrustConfidence `json:"trust_confidence"`
	RiskLevel           RiskLevel       `json:"risk_level"`
	Timestamp           time.Time       `json:"timestamp"`
}

// ClusteringConfig holds the DBSCAN parameters.
type ClusteringConfig struct {
	Epsilon    float64 `json:"epsilon" validate:"gt=0,lte=1"`
	MinSamples int     `json:"minSamples" validate:"gte=1,lte=1000"`
	Enabled    bool    `json:"enabled"`
}

// DefaultClusteringConfig returns eps 0.005 degrees (roughly 500 m), three
// samples, enabled.
func DefaultClusteringConfig() ClusteringConfig {
	return ClusteringConfig{
		Epsilon:    0.005,
		MinSamples: 3,
		Enabled:    true,
	}
}
