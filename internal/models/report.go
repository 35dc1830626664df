// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package models

import "time"

// ReportStatus is the review state of a report.
type ReportStatus string

const (
	ReportStatusNew           ReportStatus = "new"
	ReportStatusPendingReview ReportStatus = "pending_review"
	ReportStatusVerified      ReportStatus = "verified"
	ReportStatusResolved      ReportStatus = "resolved"
	ReportStatusFake          ReportStatus = "fake"
)

// Report is an incident report together with the trust snapshot taken when
// it was accepted. TrustScore and TrustWeight are never rewritten after
// submission except that a fake flag pins TrustWeight to 0.
type Report struct {
	ID                string       `json:"id"`
	ReferenceCode     string       `json:"reference_code"`
	Category          string       `json:"category"`
	Description       string       `json:"description"`
	Location          Location     `json:"location"`
	PhotoURL          string       `json:"photo_url,omitempty"`
	DeviceFingerprint string       `json:"device_fingerprint,omitempty"`
	TrustScore        int          `json:"trust_score"`
	TrustWeight       float64      `json:"trust_weight"`
	FlaggedAsFake     bool         `json:"flagged_as_fake"`
	VerifiedByPolice  bool         `json:"verified_by_police"`
	IsDelayed         bool         `json:"is_delayed"`
	DelayedUntil      *time.Time   `json:"delayed_until,omitempty"`
	Status            ReportStatus `json:"status"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// Anonymous reports whether the report was submitted without a fingerprint.
func (r *Report) Anonymous() bool {
	return r.DeviceFingerprint == ""
}

// DelayActive reports whether the report is still held back from the public
// feed at now.
func (r *Report) DelayActive(now time.Time) bool {
	return r.IsDelayed && r.DelayedUntil != nil && r.DelayedUntil.After(now)
}

// FlaggedReport is the admin view of a report marked fake. The fingerprint
// is masked.
type FlaggedReport struct {
	ID                string    `json:"id"`
	ReferenceCode     string    `json:"reference_code"`
	Category          string    `json:"category"`
	Description       string    `json:"description"`
	FingerprintMasked string    `json:"device_fingerprint_masked,omitempty"`
	TrustScore        int       `json:"trust_score"`
	CreatedAt         time.Time `json:"created_at"`
}
