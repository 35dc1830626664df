// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package trust

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/trustbond/internal/fingerprint"
	"github.com/tomtom215/trustbond/internal/logging"
	"github.com/tomtom215/trustbond/internal/metrics"
	"github.com/tomtom215/trustbond/internal/models"
)

// ErrInvalidFingerprint is returned for an empty or malformed fingerprint.
var ErrInvalidFingerprint = errors.New("invalid fingerprint")

// ErrAmbiguousPrefix is returned when a device prefix matches more than one
// record.
var ErrAmbiguousPrefix = errors.New("fingerprint prefix is ambiguous")

// FingerprintStore persists fingerprint records.
type FingerprintStore interface {
	GetFingerprint(ctx context.Context, fp string) (*models.FingerprintRecord, error)
	CreateFingerprint(ctx context.Context, rec *models.FingerprintRecord) (*models.FingerprintRecord, bool, error)
	UpdateFingerprint(ctx context.Context, fp string, fn func(*models.FingerprintRecord) error) (*models.FingerprintRecord, error)
	ListFingerprints(ctx context.Context) ([]*models.FingerprintRecord, error)
	DeleteFingerprintsUpdatedBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// Counter selects which per-device counter an adjustment increments.
type Counter int

const (
	CounterNone Counter = iota
	CounterVerified
	CounterFake
	CounterDuplicate
)

// Ledger is the single writer of device trust state.
type Ledger struct {
	store  FingerprintStore
	cfg    Config
	now    func() time.Time
	logger zerolog.Logger
}

// NewLedger creates a ledger over store.
func NewLedger(store FingerprintStore, cfg Config) *Ledger {
	return &Ledger{
		store:  store,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logging.WithComponent("trust-ledger"),
	}
}

// SetClock replaces the time source. Used by tests.
func (l *Ledger) SetClock(now func() time.Time) {
	l.now = now
}

// Config returns the ledger configuration.
func (l *Ledger) Config() Config {
	return l.cfg
}

// GetOrCreate returns the record for fp, creating it at the initial score
// on first sighting.
func (l *Ledger) GetOrCreate(ctx context.Context, fp string) (*models.FingerprintRecord, error) {
	if fp == "" {
		return nil, ErrInvalidFingerprint
	}

	rec, err := l.store.GetFingerprint(ctx, fp)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("get fingerprint: %w", err)
	}

	now := l.now()
	rec, created, err := l.store.CreateFingerprint(ctx, &models.FingerprintRecord{
		Fingerprint: fp,
		TrustScore:  l.cfg.InitialScore,
		CreatedAt:   now,
		UpdatedAt:   now,
		ScoreHistory: []models.ScoreEntry{{
			Score:     l.cfg.InitialScore,
			Reason:    ReasonInitial,
			Timestamp: now,
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("create fingerprint: %w", err)
	}
	if created {
		l.logger.Debug().Str("fingerprint", fingerprint.Mask(fp)).Msg("New device fingerprint")
	}
	return rec, nil
}

// Adjust adds delta to the score of fp, clamped to the configured bounds,
// and returns the new score. The record must exist.
func (l *Ledger) Adjust(ctx context.Context, fp string, delta int, reason string) (int, error) {
	return l.AdjustAndCount(ctx, fp, delta, reason, CounterNone)
}

// AdjustAndCount is Adjust plus an increment of counter, applied in the same
// atomic update.
func (l *Ledger) AdjustAndCount(ctx context.Context, fp string, delta int, reason string, counter Counter) (int, error) {
	if fp == "" {
		return 0, ErrInvalidFingerprint
	}

	var oldScore int
	rec, err := l.store.UpdateFingerprint(ctx, fp, func(rec *models.FingerprintRecord) error {
		oldScore = rec.TrustScore
		l.apply(rec, delta, reason, l.now())
		switch counter {
		case CounterVerified:
			rec.VerifiedCount++
		case CounterFake:
			rec.FakeCount++
		case CounterDuplicate:
			rec.DuplicateCount++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("adjust trust: %w", err)
	}

	metrics.RecordTrustAdjustment(reason)
	l.logger.Info().
		Str("fingerprint", fingerprint.Mask(fp)).
		Int("old_score", oldScore).
		Int("new_score", rec.TrustScore).
		Int("delta", delta).
		Str("reason", reason).
		Msg("Trust score adjusted")
	return rec.TrustScore, nil
}

// EnsureAdjust creates the record if it is missing and then applies
// AdjustAndCount. Used by event-driven adjustments whose record may have
// been purged since the report was filed.
func (l *Ledger) EnsureAdjust(ctx context.Context, fp string, delta int, reason string, counter Counter) (int, error) {
	if _, err := l.GetOrCreate(ctx, fp); err != nil {
		return 0, err
	}
	return l.AdjustAndCount(ctx, fp, delta, reason, counter)
}

// apply mutates rec in place. The adjustment recorded in history is the
// requested delta, not the clamped difference.
func (l *Ledger) apply(rec *models.FingerprintRecord, delta int, reason string, at time.Time) {
	rec.TrustScore = l.cfg.Clamp(rec.TrustScore + delta)
	rec.ScoreHistory = append(rec.ScoreHistory, models.ScoreEntry{
		Score:      rec.TrustScore,
		Adjustment: delta,
		Reason:     reason,
		Timestamp:  at,
	})
	if n := len(rec.ScoreHistory); n > l.cfg.HistoryLimit {
		trimmed := make([]models.ScoreEntry, l.cfg.HistoryLimit)
		copy(trimmed, rec.ScoreHistory[n-l.cfg.HistoryLimit:])
		rec.ScoreHistory = trimmed
	}
	rec.UpdatedAt = at
}

// RecordSubmission counts an accepted report against fp and remembers where
// and when it was made.
func (l *Ledger) RecordSubmission(ctx context.Context, fp string, loc models.Location, at time.Time) error {
	if fp == "" {
		return ErrInvalidFingerprint
	}
	_, err := l.store.UpdateFingerprint(ctx, fp, func(rec *models.FingerprintRecord) error {
		rec.ReportCount++
		t := at
		rec.LastReportTime = &t
		where := loc
		rec.LastReportLocation = &where
		rec.UpdatedAt = l.now()
		return nil
	})
	if err != nil {
		return fmt.Errorf("record submission: %w", err)
	}
	return nil
}

// PurgeStale deletes records not updated within maxAge and returns the
// number deleted.
func (l *Ledger) PurgeStale(ctx context.Context, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		maxAge = l.cfg.RetentionMaxAge
	}
	cutoff := l.now().Add(-maxAge)
	n, err := l.store.DeleteFingerprintsUpdatedBefore(ctx, cutoff)
	metrics.RecordRetentionSweep(n, err)
	if err != nil {
		return n, fmt.Errorf("purge stale fingerprints: %w", err)
	}
	l.logger.Info().
		Int("deleted", n).
		Time("cutoff", cutoff).
		Msg("Stale fingerprint records purged")
	return n, nil
}

// Analytics aggregates trust state across all devices.
func (l *Ledger) Analytics(ctx context.Context) (*models.AbuseAnalytics, error) {
	records, err := l.store.ListFingerprints(ctx)
	if err != nil {
		return nil, fmt.Errorf("list fingerprints: %w", err)
	}

	out := &models.AbuseAnalytics{
		TotalFingerprints: len(records),
		TopOffenders:      []models.OffenderSummary{},
		GeneratedAt:       l.now(),
	}
	var offenders []*models.FingerprintRecord
	for _, rec := range records {
		switch {
		case rec.TrustScore < l.cfg.LowTrustThreshold:
			out.LowTrustCount++
		case rec.TrustScore >= l.cfg.HighTrustThreshold:
			out.HighTrustCount++
		}

		switch {
		case rec.TrustScore < 20:
			out.Distribution.VeryLow++
		case rec.TrustScore < 40:
			out.Distribution.Low++
		case rec.TrustScore < 70:
			out.Distribution.Medium++
		case rec.TrustScore < 90:
			out.Distribution.High++
		default:
			out.Distribution.VeryHigh++
		}

		if rec.FakeCount > 0 {
			offenders = append(offenders, rec)
		}
	}
	out.MediumTrustCount = out.TotalFingerprints - out.LowTrustCount - out.HighTrustCount

	sort.Slice(offenders, func(i, j int) bool {
		a, b := offenders[i], offenders[j]
		if a.FakeCount != b.FakeCount {
			return a.FakeCount > b.FakeCount
		}
		if a.DuplicateCount != b.DuplicateCount {
			return a.DuplicateCount > b.DuplicateCount
		}
		return a.Fingerprint < b.Fingerprint
	})
	if len(offenders) > l.cfg.TopOffenders {
		offenders = offenders[:l.cfg.TopOffenders]
	}
	for _, rec := range offenders {
		out.TopOffenders = append(out.TopOffenders, models.OffenderSummary{
			FingerprintMasked: fingerprint.Mask(rec.Fingerprint),
			TrustScore:        rec.TrustScore,
			FakeCount:         rec.FakeCount,
			DuplicateCount:    rec.DuplicateCount,
			ReportCount:       rec.ReportCount,
		})
	}
	return out, nil
}

// LowTrustDevices returns up to limit low-trust devices, lowest score
// first.
func (l *Ledger) LowTrustDevices(ctx context.Context, limit int) ([]models.DeviceTrustInfo, error) {
	records, err := l.store.ListFingerprints(ctx)
	if err != nil {
		return nil, fmt.Errorf("list fingerprints: %w", err)
	}

	var low []*models.FingerprintRecord
	for _, rec := range records {
		if rec.TrustScore < l.cfg.LowTrustThreshold {
			low = append(low, rec)
		}
	}
	sort.Slice(low, func(i, j int) bool {
		if low[i].TrustScore != low[j].TrustScore {
			return low[i].TrustScore < low[j].TrustScore
		}
		if low[i].FakeCount != low[j].FakeCount {
			return low[i].FakeCount > low[j].FakeCount
		}
		return low[i].Fingerprint < low[j].Fingerprint
	})
	if limit > 0 && len(low) > limit {
		low = low[:limit]
	}

	out := make([]models.DeviceTrustInfo, 0, len(low))
	for _, rec := range low {
		out = append(out, l.deviceInfo(rec))
	}
	return out, nil
}

// DeviceInfo looks up a device by fingerprint prefix. The prefix must be at
// least MinPrefixLength characters and match exactly one record.
func (l *Ledger) DeviceInfo(ctx context.Context, prefix string) (*models.DeviceTrustInfo, error) {
	prefix = strings.ToLower(strings.TrimSuffix(prefix, "..."))
	if len(prefix) < l.cfg.MinPrefixLength {
		return nil, fmt.Errorf("%w: prefix must be at least %d characters", ErrInvalidFingerprint, l.cfg.MinPrefixLength)
	}

	if len(prefix) == fingerprint.Length {
		rec, err := l.store.GetFingerprint(ctx, prefix)
		if err != nil {
			return nil, err
		}
		info := l.deviceInfo(rec)
		return &info, nil
	}

	records, err := l.store.ListFingerprints(ctx)
	if err != nil {
		return nil, fmt.Errorf("list fingerprints: %w", err)
	}
	var match *models.FingerprintRecord
	for _, rec := range records {
		if !strings.HasPrefix(rec.Fingerprint, prefix) {
			continue
		}
		if match != nil {
			return nil, ErrAmbiguousPrefix
		}
		match = rec
	}
	if match == nil {
		return nil, models.ErrNotFound
	}
	info := l.deviceInfo(match)
	return &info, nil
}

func (l *Ledger) deviceInfo(rec *models.FingerprintRecord) models.DeviceTrustInfo {
	history := rec.ScoreHistory
	if n := len(history); n > l.cfg.RecentHistory {
		history = history[n-l.cfg.RecentHistory:]
	}
	recent := make([]models.ScoreEntry, len(history))
	copy(recent, history)

	return models.DeviceTrustInfo{
		Fingerprint:       rec.Fingerprint,
		FingerprintMasked: fingerprint.Mask(rec.Fingerprint),
		TrustScore:        rec.TrustScore,
		ReportCount:       rec.ReportCount,
		VerifiedCount:     rec.VerifiedCount,
		FakeCount:         rec.FakeCount,
		DuplicateCount:    rec.DuplicateCount,
		LastReportTime:    rec.LastReportTime,
		LastActivity:      rec.UpdatedAt,
		CreatedAt:         rec.CreatedAt,
		RecentHistory:     recent,
	}
}
