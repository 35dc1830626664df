// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package api

import (
	"context"
	"time"

	"github.com/tomtom215/trustbond/internal/intake"
	"github.com/tomtom215/trustbond/internal/models"
	"github.com/tomtom215/trustbond/internal/scheduler"
	"github.com/tomtom215/trustbond/internal/trust"
)

// Store is the storage the handlers read directly.
type Store interface {
	GetReport(ctx context.Context, id string) (*models.Report, error)
	GetReportByReference(ctx context.Context, code string) (*models.Report, error)
	ScanReports(ctx context.Context, limit int, keep func(*models.Report) bool) ([]*models.Report, error)
	LatestClusters(ctx context.Context, since time.Time) ([]models.Cluster, error)
	ListClustersSince(ctx context.Context, since time.Time, limit int) ([]models.Cluster, error)
	LoadClusteringConfig(ctx context.Context) (models.ClusteringConfig, error)
	SaveClusteringConfig(ctx context.Context, cfg models.ClusteringConfig) error
	BreakerState() string
}

// ClusterRunner triggers and reports on clustering cycles.
type ClusterRunner interface {
	RunOnce(ctx context.Context) (*scheduler.CycleResult, error)
	Health() models.SchedulerHealth
}

// HandlerConfig holds handler settings.
type HandlerConfig struct {
	// ClusterMaxAge bounds how old a served snapshot may be.
	ClusterMaxAge time.Duration

	// RetentionMaxAge is the record age purged by the admin cleanup.
	RetentionMaxAge time.Duration

	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64

	// ListLimit caps list endpoints.
	ListLimit int

	Version string
}

// DefaultHandlerConfig returns the default handler settings.
func DefaultHandlerConfig() HandlerConfig {
	return HandlerConfig{
		ClusterMaxAge:   time.Hour,
		RetentionMaxAge: 30 * 24 * time.Hour,
		MaxBodyBytes:    1 << 20,
		ListLimit:       100,
		Version:         "dev",
	}
}

// Handler serves the TrustBond API.
type Handler struct {
	store     Store
	guard     *intake.Guard
	feedback  *intake.Feedback
	ledger    *trust.Ledger
	weights   *trust.WeightCalculator
	clusters  ClusterRunner
	config    HandlerConfig
	startTime time.Time
	now       func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(store Store, guard *intake.Guard, feedback *intake.Feedback, ledger *trust.Ledger, weights *trust.WeightCalculator, clusters ClusterRunner, config HandlerConfig) *Handler {
	defaults := DefaultHandlerConfig()
	if config.ClusterMaxAge <= 0 {
		config.ClusterMaxAge = defaults.ClusterMaxAge
	}
	if config.RetentionMaxAge <= 0 {
		config.RetentionMaxAge = defaults.RetentionMaxAge
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaults.MaxBodyBytes
	}
	if config.ListLimit <= 0 {
		config.ListLimit = defaults.ListLimit
	}
	if config.Version == "" {
		config.Version = defaults.Version
	}

	return &Handler{
		store:     store,
		guard:     guard,
		feedback:  feedback,
		ledger:    ledger,
		weights:   weights,
		clusters:  clusters,
		config:    config,
		startTime: time.Now(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source. Used by tests.
func (h *Handler) SetClock(now func() time.Time) {
	h.now = now
}

// limit clamps a requested list size to [1, ListLimit].
func (h *Handler) limit(n int) int {
	if n <= 0 || n > h.config.ListLimit {
		return h.config.ListLimit
	}
	return n
}
