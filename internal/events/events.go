// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

// Package events publishes domain events for downstream consumers such as
// alert broadcasting. Payloads never carry device fingerprints.
package events

import (
	"time"

	"github.com/tomtom215/trustbond/internal/models"
)

// Topics.
const (
	TopicReportSubmitted   = "reports.submitted"
	TopicClustersRefreshed = "clusters.refreshed"
)

// ReportSubmitted announces an accepted report.
type ReportSubmitted struct {
	ReportID      string              `json:"report_id"`
	ReferenceCode string              `json:"reference_code"`
	Category      string              `json:"category"`
	Location      models.Location     `json:"location"`
	Status        models.ReportStatus `json:"status"`
	Delayed       bool                `json:"delayed"`
	SubmittedAt   time.Time           `json:"submitted_at"`
}

// ClustersRefreshed announces a completed clustering run.
type ClustersRefreshed struct {
	RunID         string    `json:"run_id"`
	ClusterCount  int       `json:"cluster_count"`
	CriticalCount int       `json:"critical_count"`
	HighCount     int       `json:"high_count"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// NewReportSubmitted builds the event for r.
func NewReportSubmitted(r *models.Report) ReportSubmitted {
	return ReportSubmitted{
		ReportID:      r.ID,
		ReferenceCode: r.ReferenceCode,
		Category:      r.Category,
		Location:      r.Location,
		Status:        r.Status,
		Delayed:       r.IsDelayed,
		SubmittedAt:   r.CreatedAt,
	}
}

// NewClustersRefreshed summarizes a run.
func NewClustersRefreshed(runID string, clusters []models.Cluster, at time.Time) ClustersRefreshed {
	ev := ClustersRefreshed{
		RunID:        runID,
		ClusterCount: len(clusters),
		GeneratedAt:  at,
	}
	for i := range clusters {
		switch clusters[i].RiskLevel {
		case models.RiskCritical:
			ev.CriticalCount++
		case models.RiskHigh:
			ev.HighCount++
		}
	}
	return ev
}
