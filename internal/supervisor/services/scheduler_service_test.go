// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

type mockScheduler struct {
	startErr   error
	stopErr    error
	startCount atomic.Int32
	stopCount  atomic.Int32
}

func (m *mockScheduler) Start(context.Context) error {
	m.startCount.Add(1)
	return m.startErr
}

func (m *mockScheduler) Stop() error {
	m.stopCount.Add(1)
	return m.stopErr
}

func TestSchedulerService_Interface(t *testing.T) {
	var _ suture.Service = (*SchedulerService)(nil)
}

func TestSchedulerServiceNames(t *testing.T) {
	if got := NewClusterSchedulerService(&mockScheduler{}).String(); got != "cluster-scheduler" {
		t.Errorf("cluster String() = %q", got)
	}
	if got := NewRetentionSweeperService(&mockScheduler{}).String(); got != "retention-sweeper" {
		t.Errorf("retention String() = %q", got)
	}
}

func TestSchedulerService_Serve(t *testing.T) {
	t.Run("starts and stops with the context", func(t *testing.T) {
		m := &mockScheduler{}
		svc := NewClusterSchedulerService(m)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- svc.Serve(ctx) }()

		time.Sleep(20 * time.Millisecond)
		cancel()

		select {
		case err := <-errCh:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Serve() error = %v, want context.Canceled", err)
			}
		case <-time.After(time.Second):
			t.Fatal("Serve() did not return")
		}
		if m.startCount.Load() != 1 || m.stopCount.Load() != 1 {
			t.Errorf("start/stop = %d/%d, want 1/1", m.startCount.Load(), m.stopCount.Load())
		}
	})

	t.Run("returns start error without stopping", func(t *testing.T) {
		m := &mockScheduler{startErr: errors.New("already running")}
		err := NewRetentionSweeperService(m).Serve(context.Background())
		if err == nil || !errors.Is(err, m.startErr) {
			t.Errorf("Serve() error = %v, want wrapped start error", err)
		}
		if m.stopCount.Load() != 0 {
			t.Errorf("stop called %d times, want 0", m.stopCount.Load())
		}
	})

	t.Run("returns stop error", func(t *testing.T) {
		m := &mockScheduler{stopErr: errors.New("stuck")}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := NewClusterSchedulerService(m).Serve(ctx); !errors.Is(err, m.stopErr) {
			t.Errorf("Serve() error = %v, want wrapped stop error", err)
		}
	})
}
