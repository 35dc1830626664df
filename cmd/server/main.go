// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/trustbond/internal/api"
	"github.com/tomtom215/trustbond/internal/clustering"
	"github.com/tomtom215/trustbond/internal/config"
	"github.com/tomtom215/trustbond/internal/events"
	"github.com/tomtom215/trustbond/internal/intake"
	"github.com/tomtom215/trustbond/internal/logging"
	"github.com/tomtom215/trustbond/internal/models"
	"github.com/tomtom215/trustbond/internal/scheduler"
	"github.com/tomtom215/trustbond/internal/store"
	"github.com/tomtom215/trustbond/internal/supervisor"
	"github.com/tomtom215/trustbond/internal/supervisor/services"
	"github.com/tomtom215/trustbond/internal/trust"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(cfg.LoggingConfig())

	logging.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Str("store_path", cfg.Store.Path).
		Bool("store_in_memory", cfg.Store.InMemory).
		Msg("Starting TrustBond")
	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS allows any origin in production; set CORS_ORIGINS")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// === STORE ===
	st, err := store.Open(cfg.StoreConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()
	seedClusteringParams(ctx, st, cfg.ClusteringParams())

	// === TRUST ===
	trustCfg := cfg.TrustConfig()
	ledger := trust.NewLedger(st, trustCfg)
	flood := trust.NewFloodDetector(st, ledger, cfg.FloodConfig())
	weights := trust.NewWeightCalculator(st, trustCfg)

	// === EVENTS ===
	var publisher *events.Publisher
	if cfg.Events.Enabled {
		publisher = events.NewPublisher(events.NewGoChannel(cfg.Events))
		logging.Info().Msg("Event publishing enabled (in-process)")
	} else {
		publisher = events.NewPublisher(nil)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event publisher")
		}
	}()

	// === INTAKE ===
	intakeCfg := cfg.IntakeConfig()
	guard := intake.NewGuard(st, ledger, flood, weights, publisher, intakeCfg)
	feedback := intake.NewFeedback(st, ledger, intakeCfg)

	// === JOBS ===
	clusterer := clustering.New(nil, cfg.ClustererConfig())
	clusterScheduler := scheduler.NewClusterScheduler(st, clusterer, publisher, cfg.Scheduler)
	sweeper := scheduler.NewRetentionSweeper(ledger, st, cfg.Retention)

	// === HTTP ===
	handler := api.NewHandler(st, guard, feedback, ledger, weights, clusterScheduler, api.HandlerConfig{
		ClusterMaxAge:   cfg.Scheduler.ClusterMaxAge,
		RetentionMaxAge: cfg.Retention.MaxAge,
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
		ListLimit:       intakeCfg.QueueLimit,
		Version:         version,
	})
	mw := api.DefaultChiMiddlewareConfig()
	mw.CORSAllowedOrigins = cfg.Security.CORSOrigins
	mw.RateLimitRequests = cfg.Security.RateLimitReqs
	mw.RateLimitWindow = cfg.Security.RateLimitWindow
	mw.RateLimitDisabled = cfg.Security.RateLimitDisabled
	mw.SubmitRateLimitRequests = cfg.Security.SubmitRateLimitReqs
	router := api.NewRouter(handler, mw)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// === SUPERVISOR TREE ===
	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), treeCfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}
	tree.AddJobService(services.NewClusterSchedulerService(clusterScheduler))
	tree.AddJobService(services.NewRetentionSweeperService(sweeper))
	tree.AddAPIService(services.NewHTTPServerService(server, server.Addr, cfg.Server.ShutdownTimeout))

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for services to stop...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("TrustBond stopped")
}

// paramsStore reads and seeds the stored clustering parameters.
type paramsStore interface {
	GetClusteringConfig(ctx context.Context) (models.ClusteringConfig, error)
	SaveClusteringConfig(ctx context.Context, cfg models.ClusteringConfig) error
}

// seedClusteringParams writes the configured DBSCAN parameters on first
// start. Parameters changed through the API are never overwritten.
func seedClusteringParams(ctx context.Context, st paramsStore, params models.ClusteringConfig) {
	_, err := st.GetClusteringConfig(ctx)
	switch {
	case err == nil:
		return
	case !errors.Is(err, models.ErrNotFound):
		logging.Warn().Err(err).Msg("Could not read clustering parameters; defaults apply until saved")
		return
	}
	if err := st.SaveClusteringConfig(ctx, params); err != nil {
		logging.Warn().Err(err).Msg("Failed to seed clustering parameters")
		return
	}
	logging.Info().
		Float64("epsilon", params.Epsilon).
		Int("min_samples", params.MinSamples).
		Bool("enabled", params.Enabled).
		Msg("Clustering parameters seeded")
}
