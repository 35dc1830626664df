// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package intake

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/trustbond/internal/fingerprint"
	"github.com/tomtom215/trustbond/internal/logging"
	"github.com/tomtom215/trustbond/internal/metrics"
	"github.com/tomtom215/trustbond/internal/models"
	"github.com/tomtom215/trustbond/internal/store"
	"github.com/tomtom215/trustbond/internal/trust"
	"github.com/tomtom215/trustbond/internal/validation"
)

// Submission outcomes recorded in metrics.
const (
	OutcomeAccepted  = "accepted"
	OutcomeAnonymous = "anonymous"
	OutcomeDelayed   = "delayed"
	OutcomeFlood     = "flood"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
)

// Submission is an incoming report.
type Submission struct {
	Category          string                     `json:"category" validate:"required,min=2,max=64"`
	Description       string                     `json:"description" validate:"required,min=3,max=2000"`
	Location          *models.Location           `json:"location" validate:"required"`
	PhotoURL          string                     `json:"photo_url,omitempty" validate:"omitempty,url,max=2048"`
	DeviceFingerprint string                     `json:"device_fingerprint,omitempty" validate:"omitempty,fingerprint"`
	DeviceSignals     *fingerprint.DeviceSignals `json:"device_signals,omitempty"`
}

// deviceID resolves the submission's fingerprint. An explicit fingerprint
// wins over signals; neither means anonymous.
func (s *Submission) deviceID() string {
	if fp := fingerprint.Normalize(s.DeviceFingerprint); fp != "" {
		return fp
	}
	if s.DeviceSignals != nil && !s.DeviceSignals.Empty() {
		return fingerprint.Hash(*s.DeviceSignals)
	}
	return ""
}

// ReportWriter persists new reports.
type ReportWriter interface {
	SaveReport(ctx context.Context, r *models.Report) error
}

// EventSink receives accepted reports.
type EventSink interface {
	ReportSubmitted(ctx context.Context, r *models.Report)
}

// Guard decides whether a submission is accepted, delayed or rejected.
type Guard struct {
	reports ReportWriter
	ledger  *trust.Ledger
	flood   *trust.FloodDetector
	weights *trust.WeightCalculator
	events  EventSink
	cfg     Config
	now     func() time.Time
	jitter  func(max time.Duration) time.Duration
}

// NewGuard creates a guard. events may be nil.
func NewGuard(reports ReportWriter, ledger *trust.Ledger, flood *trust.FloodDetector, weights *trust.WeightCalculator, events EventSink, cfg Config) *Guard {
	return &Guard{
		reports: reports,
		ledger:  ledger,
		flood:   flood,
		weights: weights,
		events:  events,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
		jitter:  uniformJitter,
	}
}

func uniformJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(max)))
}

// SetClock replaces the time source. Used by tests.
func (g *Guard) SetClock(now func() time.Time) {
	g.now = now
}

// SetJitter replaces the delay jitter source. Used by tests.
func (g *Guard) SetJitter(fn func(max time.Duration) time.Duration) {
	g.jitter = fn
}

// RetryAfter is how long a flooding client should wait.
func (g *Guard) RetryAfter() time.Duration {
	return g.flood.Config().Window
}

// Submit validates, scores and stores a submission.
func (g *Guard) Submit(ctx context.Context, sub Submission) (*models.Report, error) {
	report, outcome, err := g.submit(ctx, sub)
	metrics.RecordSubmission(outcome)
	if err != nil {
		return nil, err
	}

	if g.events != nil {
		g.events.ReportSubmitted(ctx, report)
	}
	logging.Ctx(ctx).Info().
		Str("report_id", report.ID).
		Str("reference_code", report.ReferenceCode).
		Str("outcome", outcome).
		Int("trust_score", report.TrustScore).
		Msg("Report accepted")
	return report, nil
}

func (g *Guard) submit(ctx context.Context, sub Submission) (*models.Report, string, error) {
	if verr := validation.ValidateStruct(&sub); verr != nil {
		return nil, OutcomeInvalid, fmt.Errorf("%w: %w", ErrInvalidSubmission, verr)
	}

	now := g.now()
	fp := sub.deviceID()
	tcfg := g.ledger.Config()

	report := &models.Report{
		ID:                uuid.NewString(),
		Category:          sub.Category,
		Description:       sub.Description,
		Location:          *sub.Location,
		PhotoURL:          sub.PhotoURL,
		DeviceFingerprint: fp,
		TrustScore:        tcfg.InitialScore,
		TrustWeight:       g.weights.ForScore(tcfg.InitialScore),
		Status:            models.ReportStatusNew,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	outcome := OutcomeAnonymous

	if fp != "" {
		flooded, err := g.flood.IsFlood(ctx, fp, report.Location)
		if flooded {
			if err != nil {
				logging.Ctx(ctx).Warn().Err(err).Msg("Flood penalty not applied")
			}
			return nil, OutcomeFlood, ErrFloodDetected
		}
		if err != nil {
			return nil, OutcomeError, fmt.Errorf("flood check: %w", err)
		}

		rec, err := g.ledger.GetOrCreate(ctx, fp)
		if err != nil {
			return nil, OutcomeError, fmt.Errorf("load trust: %w", err)
		}
		report.TrustScore = rec.TrustScore
		report.TrustWeight = g.weights.ForScore(rec.TrustScore)
		outcome = OutcomeAccepted

		if rec.TrustScore < tcfg.LowTrustThreshold {
			until := now.Add(g.cfg.DelayBase + g.jitter(g.cfg.DelayJitter))
			report.IsDelayed = true
			report.DelayedUntil = &until
			report.Status = models.ReportStatusPendingReview
			outcome = OutcomeDelayed
		}
	}

	if err := g.save(ctx, report); err != nil {
		return nil, OutcomeError, err
	}

	if fp != "" {
		// The report is already stored; failing here would invite a
		// duplicate resubmission.
		if err := g.ledger.RecordSubmission(ctx, fp, report.Location, now); err != nil {
			logging.Ctx(ctx).Warn().
				Err(err).
				Str("report_id", report.ID).
				Str("fingerprint", fingerprint.Mask(fp)).
				Msg("Failed to record submission on device")
		}
	}
	return report, outcome, nil
}

// save stores r under a fresh reference code, retrying on a code collision.
func (g *Guard) save(ctx context.Context, r *models.Report) error {
	var err error
	for attempt := 0; attempt < g.cfg.ReferenceAttempts; attempt++ {
		r.ReferenceCode = NewReferenceCode(g.cfg.ReferencePrefix, r.CreatedAt)
		err = g.reports.SaveReport(ctx, r)
		if !errors.Is(err, store.ErrDuplicateReport) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}
