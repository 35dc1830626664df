// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/trustbond/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(Config{InMemory: true})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecord(fp string, updated time.Time) *models.FingerprintRecord {
	return &models.FingerprintRecord{
		Fingerprint: fp,
		TrustScore:  50,
		CreatedAt:   updated,
		UpdatedAt:   updated,
		ScoreHistory: []models.ScoreEntry{
			{Score: 50, Reason: "initial", Timestamp: updated},
		},
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(Config{}); err == nil {
		t.Error("Open() with empty path error = nil, want error")
	}
}

func TestOpenOnDisk(t *testing.T) {
	dir, err := os.MkdirTemp("", "trustbond-store-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp() error = %v", err)
	}
	defer os.RemoveAll(dir)

	cfg := DefaultConfig()
	cfg.Path = dir
	s, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	ctx := context.Background()
	if err := s.SaveClusteringConfig(ctx, models.ClusteringConfig{Epsilon: 0.01, MinSamples: 4}); err != nil {
		t.Fatalf("SaveClusteringConfig() error = %v", err)
	}
	if err := s.RunGC(); err != nil {
		t.Errorf("RunGC() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	s, err = Open(cfg)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()
	got, err := s.GetClusteringConfig(ctx)
	if err != nil {
		t.Fatalf("GetClusteringConfig() after reopen error = %v", err)
	}
	if got.Epsilon != 0.01 || got.MinSamples != 4 {
		t.Errorf("GetClusteringConfig() = %+v, want eps 0.01 minSamples 4", got)
	}
}

func TestGetFingerprintNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetFingerprint(context.Background(), "missing")
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("GetFingerprint() error = %v, want ErrNotFound", err)
	}
}

func TestCreateFingerprintIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first, created, err := s.CreateFingerprint(ctx, testRecord("aa", now))
	if err != nil {
		t.Fatalf("CreateFingerprint() error = %v", err)
	}
	if !created {
		t.Error("first CreateFingerprint() created = false, want true")
	}

	second := testRecord("aa", now.Add(time.Hour))
	second.TrustScore = 99
	got, created, err := s.CreateFingerprint(ctx, second)
	if err != nil {
		t.Fatalf("second CreateFingerprint() error = %v", err)
	}
	if created {
		t.Error("second CreateFingerprint() created = true, want false")
	}
	if got.TrustScore != first.TrustScore {
		t.Errorf("TrustScore = %d, want existing %d", got.TrustScore, first.TrustScore)
	}
}

func TestUpdateFingerprint(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, _, err := s.CreateFingerprint(ctx, testRecord("bb", time.Now())); err != nil {
		t.Fatalf("CreateFingerprint() error = %v", err)
	}

	got, err := s.UpdateFingerprint(ctx, "bb", func(r *models.FingerprintRecord) error {
		r.TrustScore = 70
		r.VerifiedCount++
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateFingerprint() error = %v", err)
	}
	if got.TrustScore != 70 || got.VerifiedCount != 1 {
		t.Errorf("UpdateFingerprint() = score %d verified %d, want 70 and 1", got.TrustScore, got.VerifiedCount)
	}

	stored, err := s.GetFingerprint(ctx, "bb")
	if err != nil {
		t.Fatalf("GetFingerprint() error = %v", err)
	}
	if stored.TrustScore != 70 {
		t.Errorf("stored TrustScore = %d, want 70", stored.TrustScore)
	}
}

func TestUpdateFingerprintCallbackErrorAborts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, _, err := s.CreateFingerprint(ctx, testRecord("cc", time.Now())); err != nil {
		t.Fatalf("CreateFingerprint() error = %v", err)
	}

	sentinel := errors.New("abort")
	_, err := s.UpdateFingerprint(ctx, "cc", func(r *models.FingerprintRecord) error {
		r.TrustScore = 0
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("UpdateFingerprint() error = %v, want sentinel", err)
	}

	stored, _ := s.GetFingerprint(ctx, "cc")
	if stored.TrustScore != 50 {
		t.Errorf("TrustScore = %d after aborted update, want 50", stored.TrustScore)
	}
	if s.BreakerState() != "closed" {
		t.Errorf("BreakerState() = %s, want closed", s.BreakerState())
	}
}

func TestUpdateFingerprintMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.UpdateFingerprint(context.Background(), "nope", func(*models.FingerprintRecord) error { return nil })
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("UpdateFingerprint() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateFingerprintConcurrentNoLostUpdates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, _, err := s.CreateFingerprint(ctx, testRecord("dd", time.Now())); err != nil {
		t.Fatalf("CreateFingerprint() error = %v", err)
	}

	const workers = 64
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpdateFingerprint(ctx, "dd", func(r *models.FingerprintRecord) error {
				r.ReportCount++
				return nil
			})
			if err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("UpdateFingerprint() error = %v", err)
	}

	stored, _ := s.GetFingerprint(ctx, "dd")
	if stored.ReportCount != workers {
		t.Errorf("ReportCount = %d, want %d", stored.ReportCount, workers)
	}
	if s.BreakerState() != "closed" {
		t.Errorf("BreakerState() = %s, want closed", s.BreakerState())
	}
}

func TestIsInfrastructureError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"not found", models.ErrNotFound, false},
		{"write conflict", fmt.Errorf("update: %w", badger.ErrConflict), false},
		{"caller error", &callerError{err: errors.New("abort")}, false},
		{"canceled", context.Canceled, false},
		{"closed database", badger.ErrDBClosed, true},
		{"other", errors.New("disk full"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isInfrastructureError(tt.err); got != tt.want {
				t.Errorf("isInfrastructureError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestWithRetryStopsOnContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := s.withRetry(ctx, "test", func() error {
		calls++
		if calls == 3 {
			cancel()
		}
		return badger.ErrConflict
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("withRetry() error = %v, want context.Canceled", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestWithRetryExhausted(t *testing.T) {
	s := New(newTestStore(t).db, Config{InMemory: true, MaxConflictRetries: 2})

	calls := 0
	err := s.withRetry(context.Background(), "test", func() error {
		calls++
		return badger.ErrConflict
	})
	if !errors.Is(err, badger.ErrConflict) {
		t.Errorf("withRetry() error = %v, want ErrConflict", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDeleteFingerprintsUpdatedBefore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i, age := range []time.Duration{31 * 24 * time.Hour, 29 * 24 * time.Hour, 45 * 24 * time.Hour} {
		if _, _, err := s.CreateFingerprint(ctx, testRecord(fmt.Sprintf("fp%d", i), now.Add(-age))); err != nil {
			t.Fatalf("CreateFingerprint() error = %v", err)
		}
	}

	n, err := s.DeleteFingerprintsUpdatedBefore(ctx, now.Add(-30*24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteFingerprintsUpdatedBefore() error = %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}

	all, err := s.ListFingerprints(ctx)
	if err != nil {
		t.Fatalf("ListFingerprints() error = %v", err)
	}
	if len(all) != 1 || all[0].Fingerprint != "fp1" {
		t.Errorf("remaining = %v, want only fp1", all)
	}
}

func TestCancelledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GetFingerprint(ctx, "x")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("GetFingerprint() error = %v, want context.Canceled", err)
	}
}

func TestClosedDatabaseIsUnavailable(t *testing.T) {
	s, err := Open(Config{InMemory: true})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	s.Close()

	err = s.SaveClusteringConfig(context.Background(), models.DefaultClusteringConfig())
	if !errors.Is(err, models.ErrStoreUnavailable) {
		t.Errorf("SaveClusteringConfig() on closed db error = %v, want ErrStoreUnavailable", err)
	}
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	s, err := Open(Config{
		InMemory: true,
		Breaker: BreakerConfig{
			Name:             "test-breaker-open",
			MaxRequests:      1,
			Timeout:          time.Minute,
			FailureThreshold: 2,
		},
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	s.Close()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_ = s.SaveClusteringConfig(ctx, models.DefaultClusteringConfig())
	}
	if s.BreakerState() != "open" {
		t.Fatalf("BreakerState() = %s, want open", s.BreakerState())
	}

	_, err = s.GetFingerprint(ctx, "x")
	if !errors.Is(err, models.ErrStoreUnavailable) {
		t.Errorf("GetFingerprint() with open breaker error = %v, want ErrStoreUnavailable", err)
	}
}

func TestNotFoundDoesNotTripBreaker(t *testing.T) {
	s, err := Open(Config{
		InMemory: true,
		Breaker:  BreakerConfig{Name: "test-breaker-notfound", MaxRequests: 1, Timeout: time.Minute, FailureThreshold: 1},
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	for i := 0; i < 5; i++ {
		_, _ = s.GetReport(context.Background(), "missing")
	}
	if s.BreakerState() != "closed" {
		t.Errorf("BreakerState() = %s, want closed", s.BreakerState())
	}
}

func TestClusteringConfigDefaults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetClusteringConfig(ctx); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("GetClusteringConfig() error = %v, want ErrNotFound", err)
	}
	cfg, err := s.LoadClusteringConfig(ctx)
	if err != nil {
		t.Fatalf("LoadClusteringConfig() error = %v", err)
	}
	if cfg != models.DefaultClusteringConfig() {
		t.Errorf("LoadClusteringConfig() = %+v, want defaults", cfg)
	}

	want := models.ClusteringConfig{Epsilon: 0.002, MinSamples: 5, Enabled: false}
	if err := s.SaveClusteringConfig(ctx, want); err != nil {
		t.Fatalf("SaveClusteringConfig() error = %v", err)
	}
	got, err := s.LoadClusteringConfig(ctx)
	if err != nil {
		t.Fatalf("LoadClusteringConfig() error = %v", err)
	}
	if got != want {
		t.Errorf("LoadClusteringConfig() = %+v, want %+v", got, want)
	}
}
