// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package trust

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/tomtom215/trustbond/internal/models"
)

// fakeHistory serves canned reports.
type fakeHistory struct {
	reports []*models.Report
	err     error
}

func (f *fakeHistory) ReportsByFingerprintSince(_ context.Context, fp string, since time.Time) ([]*models.Report, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.Report
	for _, r := range f.reports {
		if r.DeviceFingerprint == fp && !r.CreatedAt.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func priorReports(fp string, n int, loc models.Location, age time.Duration) []*models.Report {
	out := make([]*models.Report, n)
	for i := range out {
		out[i] = &models.Report{
			ID:                fmt.Sprintf("r-%d", i),
			DeviceFingerprint: fp,
			Location:          loc,
			CreatedAt:         testNow.Add(-age),
		}
	}
	return out
}

func newTestDetector(t *testing.T, history ReportHistory) (*FloodDetector, *Ledger) {
	t.Helper()
	l, _ := newTestLedger(t)
	d := NewFloodDetector(history, l, DefaultFloodConfig())
	d.SetClock(func() time.Time { return testNow })
	return d, l
}

var nairobi = models.Location{Lat: -1.2921, Lng: 36.8219}

func TestIsFlood(t *testing.T) {
	// 0.0005 degrees of latitude is about 55 meters; 0.002 is about 222.
	near := models.Location{Lat: nairobi.Lat + 0.0005, Lng: nairobi.Lng}
	far := models.Location{Lat: nairobi.Lat + 0.002, Lng: nairobi.Lng}

	tests := []struct {
		name      string
		prior     int
		loc       models.Location
		age       time.Duration
		wantFlood bool
	}{
		{"three nearby priors", 3, near, time.Minute, true},
		{"two nearby priors", 2, near, time.Minute, false},
		{"priors outside radius", 5, far, time.Minute, false},
		{"priors outside window", 5, near, 11 * time.Minute, false},
		{"no history", 0, near, time.Minute, false},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := testFingerprint(200 + i)
			history := &fakeHistory{reports: priorReports(fp, tt.prior, tt.loc, tt.age)}
			d, l := newTestDetector(t, history)

			got, err := d.IsFlood(context.Background(), fp, nairobi)
			if err != nil {
				t.Fatalf("IsFlood() error = %v", err)
			}
			if got != tt.wantFlood {
				t.Errorf("IsFlood() = %v, want %v", got, tt.wantFlood)
			}

			rec, err := l.GetOrCreate(context.Background(), fp)
			if err != nil {
				t.Fatalf("GetOrCreate() error = %v", err)
			}
			wantScore, wantDup := 50, 0
			if tt.wantFlood {
				wantScore, wantDup = 40, 1
			}
			if rec.TrustScore != wantScore {
				t.Errorf("TrustScore = %d, want %d", rec.TrustScore, wantScore)
			}
			if rec.DuplicateCount != wantDup {
				t.Errorf("DuplicateCount = %d, want %d", rec.DuplicateCount, wantDup)
			}
		})
	}
}

func TestIsFloodAnonymous(t *testing.T) {
	d, _ := newTestDetector(t, &fakeHistory{err: errors.New("must not be called")})
	got, err := d.IsFlood(context.Background(), "", nairobi)
	if err != nil || got {
		t.Errorf("IsFlood(anonymous) = %v, %v, want false, nil", got, err)
	}
}

func TestIsFloodHistoryError(t *testing.T) {
	d, _ := newTestDetector(t, &fakeHistory{err: models.ErrStoreUnavailable})
	_, err := d.IsFlood(context.Background(), testFingerprint(1), nairobi)
	if !errors.Is(err, models.ErrStoreUnavailable) {
		t.Errorf("IsFlood() error = %v, want ErrStoreUnavailable", err)
	}
}

func TestIsFloodAgainstStore(t *testing.T) {
	l, s := newTestLedger(t)
	ctx := context.Background()
	fp := testFingerprint(300)

	for i := 0; i < 3; i++ {
		r := &models.Report{
			ID:                fmt.Sprintf("stored-%d", i),
			ReferenceCode:     fmt.Sprintf("TB-20260301-00000%d", i),
			DeviceFingerprint: fp,
			Location:          nairobi,
			Status:            models.ReportStatusNew,
			CreatedAt:         testNow.Add(-time.Duration(i+1) * time.Minute),
		}
		if err := s.SaveReport(ctx, r); err != nil {
			t.Fatalf("SaveReport() error = %v", err)
		}
	}

	d := NewFloodDetector(s, l, DefaultFloodConfig())
	d.SetClock(func() time.Time { return testNow })
	got, err := d.IsFlood(ctx, fp, nairobi)
	if err != nil {
		t.Fatalf("IsFlood() error = %v", err)
	}
	if !got {
		t.Error("IsFlood() = false, want true")
	}
}

func TestConfigure(t *testing.T) {
	d, _ := newTestDetector(t, &fakeHistory{})

	if err := d.Configure(FloodConfig{}); err == nil {
		t.Error("Configure(zero) = nil, want error")
	}

	cfg := FloodConfig{Window: 5 * time.Minute, RadiusMeters: 50, PriorThreshold: 2}
	if err := d.Configure(cfg); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if got := d.Config(); got != cfg {
		t.Errorf("Config() = %+v, want %+v", got, cfg)
	}
}

func TestWeightCalculator(t *testing.T) {
	l, s := newTestLedger(t)
	ctx := context.Background()
	w := NewWeightCalculator(s, DefaultConfig())

	got, err := w.Weight(ctx, testFingerprint(400))
	if err != nil {
		t.Fatalf("Weight(unknown) error = %v", err)
	}
	if got != 0.5 {
		t.Errorf("Weight(unknown) = %v, want 0.5", got)
	}

	fp := testFingerprint(401)
	if _, err := l.EnsureAdjust(ctx, fp, -11, "test", CounterNone); err != nil {
		t.Fatalf("EnsureAdjust() error = %v", err)
	}
	got, err = w.Weight(ctx, fp)
	if err != nil {
		t.Fatalf("Weight() error = %v", err)
	}
	if got != 0.1 {
		t.Errorf("Weight(score 39) = %v, want 0.1", got)
	}
}
