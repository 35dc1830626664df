// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/trustbond/internal/logging"
)

// AbuseAnalytics handles GET /api/v1/admin/abuse/analytics.
func (h *Handler) AbuseAnalytics(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	analytics, err := h.ledger.Analytics(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, analytics, start)
}

// LowTrustDevices handles GET /api/v1/admin/abuse/low-trust-devices.
func (h *Handler) LowTrustDevices(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	devices, err := h.ledger.LowTrustDevices(r.Context(), h.limit(getIntParam(r, "limit", 0)))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"devices": devices,
		"count":   len(devices),
	}, start)
}

// FlaggedReports handles GET /api/v1/admin/abuse/flagged-reports.
func (h *Handler) FlaggedReports(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	flagged, err := h.feedback.FlaggedReports(r.Context(), getIntParam(r, "limit", 0))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"reports": flagged,
		"count":   len(flagged),
	}, start)
}

// CleanupResponse reports a manual retention purge.
type CleanupResponse struct {
	Deleted int    `json:"deleted"`
	MaxAge  string `json:"max_age"`
}

// Cleanup handles POST /api/v1/admin/abuse/cleanup.
func (h *Handler) Cleanup(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	deleted, err := h.ledger.PurgeStale(r.Context(), h.config.RetentionMaxAge)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	logging.Ctx(r.Context()).Info().Int("deleted", deleted).Msg("Manual retention cleanup")
	respondSuccess(w, http.StatusOK, CleanupResponse{
		Deleted: deleted,
		MaxAge:  h.config.RetentionMaxAge.String(),
	}, start)
}

// DeviceTrust handles GET /api/v1/admin/trust/device/{prefix}.
func (h *Handler) DeviceTrust(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	info, err := h.ledger.DeviceInfo(r.Context(), chi.URLParam(r, "prefix"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if info.TrustWeight, err = h.weights.Weight(r.Context(), info.Fingerprint); err != nil {
		respondErr(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, info, start)
}
