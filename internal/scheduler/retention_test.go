// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type mockPurger struct {
	mu      sync.Mutex
	calls   int
	maxAge  time.Duration
	deleted int
	err     error
}

func (m *mockPurger) PurgeStale(ctx context.Context, maxAge time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.maxAge = maxAge
	return m.deleted, m.err
}

func (m *mockPurger) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockGC struct {
	mu    sync.Mutex
	calls int
}

func (m *mockGC) RunGC() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return nil
}

func TestSweep(t *testing.T) {
	tests := []struct {
		name    string
		deleted int
		err     error
		wantGC  int
	}{
		{"records purged", 4, nil, 1},
		{"nothing to purge", 0, nil, 0},
		{"purge failed", 0, errors.New("store unavailable"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			purger := &mockPurger{deleted: tt.deleted, err: tt.err}
			gc := &mockGC{}
			r := NewRetentionSweeper(purger, gc, DefaultRetentionConfig())

			n, err := r.Sweep(context.Background())
			if !errors.Is(err, tt.err) {
				t.Errorf("Sweep() error = %v, want %v", err, tt.err)
			}
			if n != tt.deleted {
				t.Errorf("Sweep() = %d, want %d", n, tt.deleted)
			}
			if purger.maxAge != 30*24*time.Hour {
				t.Errorf("maxAge = %v, want 30 days", purger.maxAge)
			}
			if gc.calls != tt.wantGC {
				t.Errorf("GC calls = %d, want %d", gc.calls, tt.wantGC)
			}
		})
	}
}

func TestSweepWithoutGC(t *testing.T) {
	r := NewRetentionSweeper(&mockPurger{deleted: 2}, nil, RetentionConfig{})
	if _, err := r.Sweep(context.Background()); err != nil {
		t.Errorf("Sweep() error = %v", err)
	}
}

func TestRetentionSweeperStartStop(t *testing.T) {
	purger := &mockPurger{}
	cfg := DefaultRetentionConfig()
	cfg.Interval = 5 * time.Millisecond
	r := NewRetentionSweeper(purger, nil, cfg)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := r.Start(context.Background()); err == nil {
		t.Error("second Start() error = nil, want already running")
	}
	waitFor(t, func() bool { return purger.count() >= 2 })

	if err := r.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	after := purger.count()
	time.Sleep(20 * time.Millisecond)
	if got := purger.count(); got != after {
		t.Errorf("sweeps after Stop = %d, want %d", got, after)
	}
}

func TestRetentionSweeperDisabled(t *testing.T) {
	purger := &mockPurger{}
	cfg := DefaultRetentionConfig()
	cfg.Enabled = false
	r := NewRetentionSweeper(purger, nil, cfg)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := r.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if got := purger.count(); got != 0 {
		t.Errorf("sweeps = %d, want 0", got)
	}
}
