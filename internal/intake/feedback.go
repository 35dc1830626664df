// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/trustbond/internal/fingerprint"
	"github.com/tomtom215/trustbond/internal/logging"
	"github.com/tomtom215/trustbond/internal/metrics"
	"github.com/tomtom215/trustbond/internal/models"
	"github.com/tomtom215/trustbond/internal/trust"
)

// Feedback actions.
const (
	ActionMarkFake       = "mark_fake"
	ActionVerify         = "verify"
	ActionResolve        = "resolve"
	ActionApproveDelayed = "approve_delayed"
)

// ReportEditor reads and updates stored reports.
type ReportEditor interface {
	GetReport(ctx context.Context, id string) (*models.Report, error)
	UpdateReport(ctx context.Context, id string, fn func(*models.Report) error) (*models.Report, error)
	ScanReports(ctx context.Context, limit int, keep func(*models.Report) bool) ([]*models.Report, error)
}

// FeedbackResult is the outcome of one feedback call.
type FeedbackResult struct {
	Report *models.Report `json:"report"`

	// Applied is false when the action was already in effect.
	Applied bool `json:"applied"`

	// TrustScore is the device's score after the adjustment, when one was
	// made.
	TrustScore *int `json:"trust_score,omitempty"`
}

// Feedback applies review outcomes to reports and their devices.
type Feedback struct {
	reports ReportEditor
	ledger  *trust.Ledger
	cfg     Config
	now     func() time.Time
}

// NewFeedback creates a feedback service.
func NewFeedback(reports ReportEditor, ledger *trust.Ledger, cfg Config) *Feedback {
	return &Feedback{
		reports: reports,
		ledger:  ledger,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source. Used by tests.
func (f *Feedback) SetClock(now func() time.Time) {
	f.now = now
}

// adjustment is the ledger change triggered by a state transition.
type adjustment struct {
	delta   int
	reason  string
	counter trust.Counter
}

// transition mutates r and reports whether anything changed. It returns
// ErrFeedbackConflict when the action contradicts r's state.
type transition func(r *models.Report, now time.Time) (bool, error)

// MarkFake flags a report as fake. Its weight is pinned to 0 and the
// device loses trust.
func (f *Feedback) MarkFake(ctx context.Context, id string) (*FeedbackResult, error) {
	deltas := f.ledger.Config().Deltas
	return f.apply(ctx, ActionMarkFake, id, func(r *models.Report, now time.Time) (bool, error) {
		if r.FlaggedAsFake {
			return false, nil
		}
		if r.VerifiedByPolice {
			return false, fmt.Errorf("%w: report %s is verified", ErrFeedbackConflict, r.ID)
		}
		r.FlaggedAsFake = true
		r.TrustWeight = 0
		r.Status = models.ReportStatusFake
		r.UpdatedAt = now
		return true, nil
	}, &adjustment{deltas.Fake, trust.ReasonReportFake, trust.CounterFake})
}

// Verify confirms a report. The submission-time trust snapshot is kept;
// the device gains trust and the report leaves the delay queue.
func (f *Feedback) Verify(ctx context.Context, id string) (*FeedbackResult, error) {
	deltas := f.ledger.Config().Deltas
	return f.apply(ctx, ActionVerify, id, func(r *models.Report, now time.Time) (bool, error) {
		if r.FlaggedAsFake {
			return false, fmt.Errorf("%w: report %s is marked fake", ErrFeedbackConflict, r.ID)
		}
		if r.VerifiedByPolice {
			return false, nil
		}
		r.VerifiedByPolice = true
		r.Status = models.ReportStatusVerified
		clearDelay(r)
		r.UpdatedAt = now
		return true, nil
	}, &adjustment{deltas.Verified, trust.ReasonReportVerified, trust.CounterVerified})
}

// Resolve closes a report as handled.
func (f *Feedback) Resolve(ctx context.Context, id string) (*FeedbackResult, error) {
	deltas := f.ledger.Config().Deltas
	return f.apply(ctx, ActionResolve, id, func(r *models.Report, now time.Time) (bool, error) {
		if r.FlaggedAsFake {
			return false, fmt.Errorf("%w: report %s is marked fake", ErrFeedbackConflict, r.ID)
		}
		if r.Status == models.ReportStatusResolved {
			return false, nil
		}
		r.Status = models.ReportStatusResolved
		clearDelay(r)
		r.UpdatedAt = now
		return true, nil
	}, &adjustment{deltas.Resolved, trust.ReasonReportResolved, trust.CounterNone})
}

// ApproveDelayed releases a held report without touching device trust.
func (f *Feedback) ApproveDelayed(ctx context.Context, id string) (*FeedbackResult, error) {
	return f.apply(ctx, ActionApproveDelayed, id, func(r *models.Report, now time.Time) (bool, error) {
		if r.FlaggedAsFake {
			return false, fmt.Errorf("%w: report %s is marked fake", ErrFeedbackConflict, r.ID)
		}
		if !r.IsDelayed {
			return false, nil
		}
		clearDelay(r)
		r.UpdatedAt = now
		return true, nil
	}, nil)
}

func clearDelay(r *models.Report) {
	r.IsDelayed = false
	r.DelayedUntil = nil
	if r.Status == models.ReportStatusPendingReview {
		r.Status = models.ReportStatusNew
	}
}

func (f *Feedback) apply(ctx context.Context, action, id string, fn transition, adj *adjustment) (*FeedbackResult, error) {
	now := f.now()
	var applied bool
	report, err := f.reports.UpdateReport(ctx, id, func(r *models.Report) error {
		var err error
		applied, err = fn(r, now)
		return err
	})
	if err != nil {
		metrics.RecordFeedback(action, feedbackResult(err))
		return nil, fmt.Errorf("%s: %w", action, err)
	}

	result := &FeedbackResult{Report: report, Applied: applied}
	if !applied {
		metrics.RecordFeedback(action, "noop")
		return result, nil
	}

	logger := logging.Ctx(ctx)
	if adj != nil && !report.Anonymous() {
		score, err := f.ledger.EnsureAdjust(ctx, report.DeviceFingerprint, adj.delta, trust.FeedbackReason(adj.reason, report.ID), adj.counter)
		if err != nil {
			metrics.RecordFeedback(action, "error")
			logger.Error().
				Err(err).
				Str("report_id", report.ID).
				Str("fingerprint", fingerprint.Mask(report.DeviceFingerprint)).
				Msg("Report updated but trust adjustment failed")
			return nil, fmt.Errorf("%s: adjust trust: %w", action, err)
		}
		result.TrustScore = &score
	}

	metrics.RecordFeedback(action, "applied")
	logger.Info().
		Str("report_id", report.ID).
		Str("action", action).
		Str("status", string(report.Status)).
		Msg("Feedback applied")
	return result, nil
}

func feedbackResult(err error) string {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrFeedbackConflict):
		return "conflict"
	default:
		return "error"
	}
}

// LowTrustQueue returns reports awaiting review, oldest first.
func (f *Feedback) LowTrustQueue(ctx context.Context, limit int) ([]*models.Report, error) {
	held, err := f.reports.ScanReports(ctx, 0, func(r *models.Report) bool {
		return r.Status == models.ReportStatusPendingReview && !r.FlaggedAsFake
	})
	if err != nil {
		return nil, fmt.Errorf("scan delayed reports: %w", err)
	}
	for i, j := 0, len(held)-1; i < j; i, j = i+1, j-1 {
		held[i], held[j] = held[j], held[i]
	}
	if limit = f.limit(limit); len(held) > limit {
		held = held[:limit]
	}
	return held, nil
}

// FlaggedReports returns reports marked fake, newest first, with masked
// fingerprints.
func (f *Feedback) FlaggedReports(ctx context.Context, limit int) ([]models.FlaggedReport, error) {
	flagged, err := f.reports.ScanReports(ctx, f.limit(limit), func(r *models.Report) bool {
		return r.FlaggedAsFake
	})
	if err != nil {
		return nil, fmt.Errorf("scan flagged reports: %w", err)
	}

	out := make([]models.FlaggedReport, 0, len(flagged))
	for _, r := range flagged {
		out = append(out, models.FlaggedReport{
			ID:                r.ID,
			ReferenceCode:     r.ReferenceCode,
			Category:          r.Category,
			Description:       r.Description,
			FingerprintMasked: fingerprint.Mask(r.DeviceFingerprint),
			TrustScore:        r.TrustScore,
			CreatedAt:         r.CreatedAt,
		})
	}
	return out, nil
}

func (f *Feedback) limit(n int) int {
	if n <= 0 || n > f.cfg.QueueLimit {
		return f.cfg.QueueLimit
	}
	return n
}
