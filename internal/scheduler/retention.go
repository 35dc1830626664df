// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/trustbond/internal/logging"
)

// Purger deletes stale device records.
type Purger interface {
	PurgeStale(ctx context.Context, maxAge time.Duration) (int, error)
}

// GarbageCollector reclaims storage after deletions.
type GarbageCollector interface {
	RunGC() error
}

// RetentionConfig holds configuration for the retention sweeper.
type RetentionConfig struct {
	// Interval between sweeps (default: 24 hours)
	Interval time.Duration `koanf:"interval"`

	// MaxAge is how long an untouched device record is kept
	// (default: 30 days)
	MaxAge time.Duration `koanf:"max_age"`

	// Enabled controls whether sweeps run
	Enabled bool `koanf:"enabled"`
}

// DefaultRetentionConfig returns the default retention configuration.
func DefaultRetentionConfig() RetentionConfig {
	return RetentionConfig{
		Interval: 24 * time.Hour,
		MaxAge:   30 * 24 * time.Hour,
		Enabled:  true,
	}
}

// Validate checks the configuration.
func (c RetentionConfig) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if c.MaxAge <= 0 {
		return fmt.Errorf("max_age must be positive")
	}
	return nil
}

// RetentionSweeper purges stale device records on an interval.
type RetentionSweeper struct {
	purger Purger
	gc     GarbageCollector
	logger zerolog.Logger
	config RetentionConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewRetentionSweeper creates a sweeper. gc may be nil.
func NewRetentionSweeper(purger Purger, gc GarbageCollector, config RetentionConfig) *RetentionSweeper {
	defaults := DefaultRetentionConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.MaxAge <= 0 {
		config.MaxAge = defaults.MaxAge
	}
	return &RetentionSweeper{
		purger: purger,
		gc:     gc,
		logger: logging.WithComponent("retention-sweeper"),
		config: config,
	}
}

// Start begins the sweep loop.
func (r *RetentionSweeper) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("retention sweeper already running")
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.mu.Unlock()

	if !r.config.Enabled {
		r.logger.Info().Msg("Retention sweeper disabled")
		go func() {
			defer close(r.doneCh)
			<-r.stopCh
		}()
		return nil
	}

	r.logger.Info().
		Dur("interval", r.config.Interval).
		Dur("max_age", r.config.MaxAge).
		Msg("Starting retention sweeper")

	go r.run(ctx)
	return nil
}

// Stop stops the sweep loop and waits for it to complete.
func (r *RetentionSweeper) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	close(r.stopCh)
	<-r.doneCh

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()

	r.logger.Info().Msg("Retention sweeper stopped")
	return nil
}

func (r *RetentionSweeper) run(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	r.Sweep(ctx)

	for {
		select {
		case <-ticker.C:
			r.Sweep(ctx)
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Sweep runs one purge followed by storage garbage collection. Errors are
// logged; the next sweep retries.
func (r *RetentionSweeper) Sweep(ctx context.Context) (int, error) {
	deleted, err := r.purger.PurgeStale(ctx, r.config.MaxAge)
	if err != nil {
		r.logger.Error().Err(err).Msg("Retention sweep failed")
		return deleted, err
	}

	if r.gc != nil && deleted > 0 {
		if err := r.gc.RunGC(); err != nil {
			r.logger.Warn().Err(err).Msg("Storage garbage collection failed")
		}
	}
	return deleted, nil
}
