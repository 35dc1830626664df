// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package api

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/trustbond/internal/fingerprint"
	"github.com/tomtom215/trustbond/internal/intake"
	"github.com/tomtom215/trustbond/internal/models"
)

// publicReport strips the device fingerprint.
func publicReport(r *models.Report) *models.Report {
	out := *r
	out.DeviceFingerprint = ""
	return &out
}

// maskedReport replaces the device fingerprint with its masked form.
func maskedReport(r *models.Report) *models.Report {
	out := *r
	out.DeviceFingerprint = fingerprint.Mask(r.DeviceFingerprint)
	return &out
}

// SubmitReportResponse is returned by a successful submission.
type SubmitReportResponse struct {
	ID            string              `json:"id"`
	ReferenceCode string              `json:"reference_code"`
	Status        models.ReportStatus `json:"status"`
	IsDelayed     bool                `json:"is_delayed"`
	DelayedUntil  *time.Time          `json:"delayed_until,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

// SubmitReport handles POST /api/v1/reports.
func (h *Handler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var sub intake.Submission
	if !decodeJSON(w, r, h.config.MaxBodyBytes, &sub) {
		return
	}

	report, err := h.guard.Submit(r.Context(), sub)
	if err != nil {
		if errors.Is(err, intake.ErrFloodDetected) {
			retry := int(math.Ceil(h.guard.RetryAfter().Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(retry))
		}
		respondErr(w, r, err)
		return
	}

	respondSuccess(w, http.StatusCreated, SubmitReportResponse{
		ID:            report.ID,
		ReferenceCode: report.ReferenceCode,
		Status:        report.Status,
		IsDelayed:     report.IsDelayed,
		DelayedUntil:  report.DelayedUntil,
		CreatedAt:     report.CreatedAt,
	}, start)
}

// ListReports handles GET /api/v1/reports: the public feed, newest first,
// without fake or still-delayed reports. ?category= filters.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	now := h.now()
	category := r.URL.Query().Get("category")

	reports, err := h.store.ScanReports(r.Context(), h.limit(getIntParam(r, "limit", 0)), func(rep *models.Report) bool {
		if rep.FlaggedAsFake || rep.DelayActive(now) {
			return false
		}
		return category == "" || rep.Category == category
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}

	out := make([]*models.Report, len(reports))
	for i, rep := range reports {
		out[i] = publicReport(rep)
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"reports": out,
		"count":   len(out),
	}, start)
}

// GetReport handles GET /api/v1/reports/{id}.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	report, err := h.store.GetReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, publicReport(report), start)
}

// GetReportByReference handles GET /api/v1/reports/reference/{code}.
func (h *Handler) GetReportByReference(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	report, err := h.store.GetReportByReference(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, publicReport(report), start)
}

type feedbackFunc func(ctx context.Context, id string) (*intake.FeedbackResult, error)

// feedbackHandler adapts one feedback action to a handler.
func (h *Handler) feedbackHandler(action feedbackFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		res, err := action(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respondErr(w, r, err)
			return
		}
		res.Report = maskedReport(res.Report)
		respondSuccess(w, http.StatusOK, res, start)
	}
}

// MarkFake handles POST /api/v1/reports/{id}/mark-fake.
func (h *Handler) MarkFake(w http.ResponseWriter, r *http.Request) {
	h.feedbackHandler(h.feedback.MarkFake)(w, r)
}

// Verify handles POST /api/v1/reports/{id}/verify.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	h.feedbackHandler(h.feedback.Verify)(w, r)
}

// Resolve handles POST /api/v1/reports/{id}/resolve.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	h.feedbackHandler(h.feedback.Resolve)(w, r)
}

// ApproveDelayed handles POST /api/v1/reports/{id}/approve-delayed.
func (h *Handler) ApproveDelayed(w http.ResponseWriter, r *http.Request) {
	h.feedbackHandler(h.feedback.ApproveDelayed)(w, r)
}

// LowTrustQueue handles GET /api/v1/reports/queue/low-trust.
func (h *Handler) LowTrustQueue(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	held, err := h.feedback.LowTrustQueue(r.Context(), getIntParam(r, "limit", 0))
	if err != nil {
		respondErr(w, r, err)
		return
	}

	out := make([]*models.Report, len(held))
	for i, rep := range held {
		out[i] = maskedReport(rep)
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"reports": out,
		"count":   len(out),
	}, start)
}
