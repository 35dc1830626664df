// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/trustbond/internal/clustering"
	"github.com/tomtom215/trustbond/internal/events"
	"github.com/tomtom215/trustbond/internal/logging"
	"github.com/tomtom215/trustbond/internal/metrics"
	"github.com/tomtom215/trustbond/internal/models"
)

// ErrCycleInProgress is returned by RunOnce while another cycle runs.
var ErrCycleInProgress = errors.New("clustering cycle already in progress")

// Scheduler states.
const (
	StateIdle    = "idle"
	StateRunning = "running"
)

// Cycle results recorded in metrics.
const (
	ResultSuccess          = "success"
	ResultSkipped          = "skipped"
	ResultInsufficientData = "insufficient_data"
	ResultError            = "error"
)

// ClusterStore is the storage the clustering cycle reads and writes.
type ClusterStore interface {
	LoadClusteringConfig(ctx context.Context) (models.ClusteringConfig, error)
	ReportsSince(ctx context.Context, since time.Time) ([]*models.Report, error)
	ReplaceClusters(ctx context.Context, cutoff time.Time, clusters []models.Cluster) (int, error)
}

// ClusterEvents receives refreshed snapshots.
type ClusterEvents interface {
	ClustersRefreshed(ctx context.Context, ev events.ClustersRefreshed)
}

// Config holds configuration for the clustering scheduler.
type Config struct {
	// Interval between successful cycles (default: 30 minutes)
	Interval time.Duration `koanf:"interval"`

	// RetryDelay replaces Interval after a failed cycle (default: 60 seconds)
	RetryDelay time.Duration `koanf:"retry_delay"`

	// ClusterMaxAge is how long a stored snapshot stays readable
	// (default: 1 hour)
	ClusterMaxAge time.Duration `koanf:"cluster_max_age"`

	// UnhealthyAfter consecutive failures marks the scheduler unhealthy
	UnhealthyAfter int `koanf:"unhealthy_after"`

	// CycleTimeout bounds a single cycle
	CycleTimeout time.Duration `koanf:"cycle_timeout"`

	// Enabled controls whether the periodic loop runs. Manual RunOnce calls
	// work either way.
	Enabled bool `koanf:"enabled"`
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() Config {
	return Config{
		Interval:       30 * time.Minute,
		RetryDelay:     time.Minute,
		ClusterMaxAge:  time.Hour,
		UnhealthyAfter: 3,
		CycleTimeout:   5 * time.Minute,
		Enabled:        true,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if c.RetryDelay <= 0 {
		return fmt.Errorf("retry_delay must be positive")
	}
	if c.ClusterMaxAge <= 0 {
		return fmt.Errorf("cluster_max_age must be positive")
	}
	if c.UnhealthyAfter < 1 {
		return fmt.Errorf("unhealthy_after must be at least 1")
	}
	return nil
}

// CycleResult summarises one clustering cycle.
type CycleResult struct {
	RunID         string           `json:"run_id"`
	Skipped       bool             `json:"skipped"`
	ClusterCount  int              `json:"cluster_count"`
	CriticalCount int              `json:"critical_count"`
	Removed       int              `json:"removed"`
	Stats         clustering.Stats `json:"stats"`
	StartedAt     time.Time        `json:"started_at"`
	DurationMS    int64            `json:"duration_ms"`
}

// ClusterScheduler rebuilds the hotspot snapshot on an interval.
type ClusterScheduler struct {
	store     ClusterStore
	clusterer *clustering.Clusterer
	events    ClusterEvents
	logger    zerolog.Logger
	config    Config
	now       func() time.Time

	// cycle guards a single in-flight cycle.
	cycle sync.Mutex

	// Runtime state
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	healthMu            sync.RWMutex
	state               string
	consecutiveFailures int
	lastRunAt           *time.Time
	lastSuccessAt       *time.Time
	lastError           string
}

// NewClusterScheduler creates a clustering scheduler. events may be nil.
func NewClusterScheduler(store ClusterStore, clusterer *clustering.Clusterer, events ClusterEvents, config Config) *ClusterScheduler {
	defaults := DefaultConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = defaults.RetryDelay
	}
	if config.ClusterMaxAge <= 0 {
		config.ClusterMaxAge = defaults.ClusterMaxAge
	}
	if config.UnhealthyAfter <= 0 {
		config.UnhealthyAfter = defaults.UnhealthyAfter
	}

	return &ClusterScheduler{
		store:     store,
		clusterer: clusterer,
		events:    events,
		logger:    logging.WithComponent("cluster-scheduler"),
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
		state:     StateIdle,
	}
}

// SetClock replaces the time source. Used by tests.
func (s *ClusterScheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Start begins the scheduler loop.
func (s *ClusterScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("cluster scheduler already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	if !s.config.Enabled {
		s.logger.Info().Msg("Cluster scheduler disabled")
		go func() {
			defer close(s.doneCh)
			<-s.stopCh
		}()
		return nil
	}

	s.logger.Info().
		Dur("interval", s.config.Interval).
		Dur("retry_delay", s.config.RetryDelay).
		Msg("Starting cluster scheduler")

	go s.run(ctx)
	return nil
}

// Stop stops the scheduler loop and waits for it to complete. A cycle in
// flight finishes first.
func (s *ClusterScheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	s.logger.Info().Msg("Stopping cluster scheduler...")
	close(s.stopCh)
	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info().Msg("Cluster scheduler stopped")
	return nil
}

// run is the main scheduler loop. The wait after a cycle is Interval on
// success and RetryDelay on failure.
func (s *ClusterScheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	timer := time.NewTimer(s.tick(ctx))
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			timer.Reset(s.tick(ctx))
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// tick runs one scheduled cycle and returns the wait until the next.
func (s *ClusterScheduler) tick(ctx context.Context) time.Duration {
	_, err := s.RunOnce(ctx)
	switch {
	case err == nil:
		return s.config.Interval
	case errors.Is(err, ErrCycleInProgress):
		// A manual refresh is running; it counts as this tick.
		return s.config.Interval
	default:
		return s.config.RetryDelay
	}
}

// RunOnce runs a clustering cycle now. It returns ErrCycleInProgress
// without waiting when another cycle is in flight.
func (s *ClusterScheduler) RunOnce(ctx context.Context) (*CycleResult, error) {
	if !s.cycle.TryLock() {
		return nil, ErrCycleInProgress
	}
	defer s.cycle.Unlock()

	started := s.now()
	result := &CycleResult{RunID: uuid.NewString(), StartedAt: started}
	s.markRunning(started)

	ctx = logging.ContextWithRunID(ctx, result.RunID)
	if s.config.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.CycleTimeout)
		defer cancel()
	}

	outcome, err := s.execute(ctx, result)
	duration := s.now().Sub(started)
	result.DurationMS = duration.Milliseconds()
	failures := s.markDone(started, err)
	metrics.RecordClusteringCycle(outcome, duration, failures)

	logger := logging.Ctx(ctx)
	if err != nil {
		event := logger.Error()
		if failures >= s.config.UnhealthyAfter {
			event = event.Bool("unhealthy", true)
		}
		event.Err(err).
			Int("consecutive_failures", failures).
			Dur("retry_in", s.config.RetryDelay).
			Msg("Clustering cycle failed")
		return nil, err
	}

	logger.Info().
		Str("result", outcome).
		Int("clusters", result.ClusterCount).
		Int("critical", result.CriticalCount).
		Int("removed", result.Removed).
		Int("eligible", result.Stats.Eligible).
		Int64("duration_ms", result.DurationMS).
		Msg("Clustering cycle complete")
	return result, nil
}

// execute performs the cycle body and returns the metric outcome.
func (s *ClusterScheduler) execute(ctx context.Context, result *CycleResult) (string, error) {
	params, err := s.store.LoadClusteringConfig(ctx)
	if err != nil {
		return ResultError, fmt.Errorf("load clustering config: %w", err)
	}
	if !params.Enabled {
		result.Skipped = true
		logging.Ctx(ctx).Debug().Msg("Clustering disabled, skipping cycle")
		return ResultSkipped, nil
	}

	since := result.StartedAt.Add(-s.clusterer.Config().Window)
	reports, err := s.store.ReportsSince(ctx, since)
	if err != nil {
		return ResultError, fmt.Errorf("fetch reports: %w", err)
	}
	metrics.ClusteringReportsConsidered.Set(float64(len(reports)))

	outcome := ResultSuccess
	clusters, stats, err := s.clusterer.Run(reports, params)
	result.Stats = stats
	switch {
	case errors.Is(err, clustering.ErrInsufficientData):
		logging.Ctx(ctx).Info().
			Int("input", stats.Input).
			Int("eligible", stats.Eligible).
			Msg("Not enough eligible reports to cluster")
		clusters = nil
		outcome = ResultInsufficientData
	case err != nil:
		return ResultError, fmt.Errorf("cluster reports: %w", err)
	}

	for i := range clusters {
		clusters[i].RunID = result.RunID
	}

	removed, err := s.store.ReplaceClusters(ctx, result.StartedAt.Add(-s.config.ClusterMaxAge), clusters)
	if err != nil {
		return ResultError, fmt.Errorf("replace clusters: %w", err)
	}
	result.Removed = removed
	result.ClusterCount = len(clusters)

	byRisk := make(map[string]int, 3)
	for i := range clusters {
		byRisk[string(clusters[i].RiskLevel)]++
	}
	result.CriticalCount = byRisk[string(models.RiskCritical)]
	metrics.UpdateActiveClusters(byRisk)

	if s.events != nil {
		s.events.ClustersRefreshed(ctx, events.NewClustersRefreshed(result.RunID, clusters, result.StartedAt))
	}
	return outcome, nil
}

func (s *ClusterScheduler) markRunning(at time.Time) {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()
	s.state = StateRunning
	s.lastRunAt = &at
}

// markDone records the cycle outcome and returns the failure streak.
func (s *ClusterScheduler) markDone(started time.Time, err error) int {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()
	s.state = StateIdle
	if err != nil {
		s.consecutiveFailures++
		s.lastError = err.Error()
		return s.consecutiveFailures
	}
	s.consecutiveFailures = 0
	s.lastError = ""
	s.lastSuccessAt = &started
	return 0
}

// Health reports the scheduler state. The scheduler keeps running when
// unhealthy.
func (s *ClusterScheduler) Health() models.SchedulerHealth {
	s.healthMu.RLock()
	defer s.healthMu.RUnlock()
	return models.SchedulerHealth{
		State:               s.state,
		Healthy:             s.consecutiveFailures < s.config.UnhealthyAfter,
		ConsecutiveFailures: s.consecutiveFailures,
		LastRunAt:           copyTime(s.lastRunAt),
		LastSuccessAt:       copyTime(s.lastSuccessAt),
		LastError:           s.lastError,
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
