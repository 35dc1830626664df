// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package trust

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/trustbond/internal/fingerprint"
	"github.com/tomtom215/trustbond/internal/geo"
	"github.com/tomtom215/trustbond/internal/logging"
	"github.com/tomtom215/trustbond/internal/models"
)

// ReportHistory returns a device's recent reports.
type ReportHistory interface {
	ReportsByFingerprintSince(ctx context.Context, fp string, since time.Time) ([]*models.Report, error)
}

// FloodDetector flags devices that submit several reports from the same
// spot within a short window.
type FloodDetector struct {
	reports ReportHistory
	ledger  *Ledger
	config  FloodConfig
	now     func() time.Time
	logger  zerolog.Logger
	mu      sync.RWMutex
}

// NewFloodDetector creates a flood detector.
func NewFloodDetector(reports ReportHistory, ledger *Ledger, cfg FloodConfig) *FloodDetector {
	return &FloodDetector{
		reports: reports,
		ledger:  ledger,
		config:  cfg,
		now:     func() time.Time { return time.Now().UTC() },
		logger:  logging.WithComponent("flood-detector"),
	}
}

// SetClock replaces the time source. Used by tests.
func (d *FloodDetector) SetClock(now func() time.Time) {
	d.now = now
}

// Config returns the active configuration.
func (d *FloodDetector) Config() FloodConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config
}

// Configure replaces the configuration after validating it.
func (d *FloodDetector) Configure(cfg FloodConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flood configuration: %w", err)
	}
	d.mu.Lock()
	d.config = cfg
	d.mu.Unlock()
	return nil
}

// IsFlood reports whether a submission by fp at loc is a flood. It counts
// the device's reports within the window and radius; reaching the
// threshold penalizes the device by the duplicate delta and increments its
// duplicate counter in one update. Anonymous submissions are never floods.
func (d *FloodDetector) IsFlood(ctx context.Context, fp string, loc models.Location) (bool, error) {
	if fp == "" {
		return false, nil
	}
	cfg := d.Config()

	recent, err := d.reports.ReportsByFingerprintSince(ctx, fp, d.now().Add(-cfg.Window))
	if err != nil {
		return false, fmt.Errorf("load recent reports: %w", err)
	}

	here := geo.Point(loc)
	nearby := 0
	for _, r := range recent {
		if geo.EquirectangularMeters(here, geo.Point(r.Location)) <= cfg.RadiusMeters {
			nearby++
		}
	}
	if nearby < cfg.PriorThreshold {
		return false, nil
	}

	penalty := d.ledger.Config().Deltas.Duplicate
	score, err := d.ledger.EnsureAdjust(ctx, fp, penalty, ReasonFlood, CounterDuplicate)
	if err != nil {
		return true, fmt.Errorf("apply flood penalty: %w", err)
	}

	d.logger.Warn().
		Str("fingerprint", fingerprint.Mask(fp)).
		Int("nearby_reports", nearby).
		Dur("window", cfg.Window).
		Int("new_score", score).
		Msg("Flood detected")
	return true, nil
}

// WeightCalculator derives clustering weights from device scores.
type WeightCalculator struct {
	store FingerprintStore
	cfg   Config
}

// NewWeightCalculator creates a weight calculator.
func NewWeightCalculator(store FingerprintStore, cfg Config) *WeightCalculator {
	return &WeightCalculator{store: store, cfg: cfg}
}

// Weight returns the weight for fp's current score. Unknown devices get the
// weight of the initial score. Submissions snapshot the weight with ForScore
// from the record they already hold; Weight serves live lookups.
func (w *WeightCalculator) Weight(ctx context.Context, fp string) (float64, error) {
	rec, err := w.store.GetFingerprint(ctx, fp)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return w.cfg.WeightForScore(w.cfg.InitialScore), nil
		}
		return 0, fmt.Errorf("get fingerprint: %w", err)
	}
	return w.cfg.WeightForScore(rec.TrustScore), nil
}

// ForScore returns the weight for score.
func (w *WeightCalculator) ForScore(score int) float64 {
	return w.cfg.WeightForScore(score)
}
