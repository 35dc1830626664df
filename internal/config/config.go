// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/trustbond/internal/clustering"
	"github.com/tomtom215/trustbond/internal/events"
	"github.com/tomtom215/trustbond/internal/intake"
	"github.com/tomtom215/trustbond/internal/logging"
	"github.com/tomtom215/trustbond/internal/models"
	"github.com/tomtom215/trustbond/internal/scheduler"
	"github.com/tomtom215/trustbond/internal/store"
	"github.com/tomtom215/trustbond/internal/trust"
)

// Config holds all application configuration.
//
// Each section converts to the configuration struct of the package that
// owns it (TrustConfig, FloodConfig, StoreConfig and so on), so packages
// never import this one.
type Config struct {
	Trust      TrustConfig               `koanf:"trust"`
	Flood      FloodConfig               `koanf:"flood"`
	Intake     IntakeConfig              `koanf:"intake"`
	Clustering ClusteringConfig          `koanf:"clustering"`
	Scheduler  scheduler.Config          `koanf:"scheduler"`
	Retention  scheduler.RetentionConfig `koanf:"retention"`
	Store      StoreConfig               `koanf:"store"`
	Server     ServerConfig              `koanf:"server"`
	Security   SecurityConfig            `koanf:"security"`
	Events     events.Config             `koanf:"events"`
	Logging    LoggingConfig             `koanf:"logging"`
}

// TrustConfig holds device trust scoring settings.
type TrustConfig struct {
	InitialScore       int     `koanf:"initial_score"`
	MinScore           int     `koanf:"min_score"`
	MaxScore           int     `koanf:"max_score"`
	HistoryLimit       int     `koanf:"history_limit"`
	LowTrustThreshold  int     `koanf:"low_trust_threshold"`
	LowTrustWeight     float64 `koanf:"low_trust_weight"`
	HighTrustThreshold int     `koanf:"high_trust_threshold"`

	VerifiedDelta       int `koanf:"verified_delta"`
	FakeDelta           int `koanf:"fake_delta"`
	DuplicateDelta      int `koanf:"duplicate_delta"`
	ResolvedDelta       int `koanf:"resolved_delta"`
	ChatEngagementDelta int `koanf:"chat_engagement_delta"`

	TopOffenders    int `koanf:"top_offenders"`
	RecentHistory   int `koanf:"recent_history"`
	MinPrefixLength int `koanf:"min_prefix_length"`
}

// FloodConfig holds flood detection settings.
type FloodConfig struct {
	Window         time.Duration `koanf:"window"`
	RadiusMeters   float64       `koanf:"radius_meters"`
	PriorThreshold int           `koanf:"prior_threshold"`
}

// IntakeConfig holds report intake settings.
type IntakeConfig struct {
	DelayBase         time.Duration `koanf:"delay_base"`
	DelayJitter       time.Duration `koanf:"delay_jitter"`
	ReferencePrefix   string        `koanf:"reference_prefix"`
	ReferenceAttempts int           `koanf:"reference_attempts"`
	QueueLimit        int           `koanf:"queue_limit"`
}

// ClusteringConfig holds the clusterer constants and the DBSCAN parameters
// written to the store on first start. Once stored, the parameters are
// managed through the API and these values are ignored.
type ClusteringConfig struct {
	Window           time.Duration `koanf:"window"`
	MinWeight        float64       `koanf:"min_weight"`
	DefaultWeight    float64       `koanf:"default_weight"`
	DefaultScore     int           `koanf:"default_score"`
	MinRadiusMeters  float64       `koanf:"min_radius_meters"`
	CriticalAbove    float64       `koanf:"critical_above"`
	HighAbove        float64       `koanf:"high_above"`
	HighConfidence   float64       `koanf:"high_confidence"`
	MediumConfidence float64       `koanf:"medium_confidence"`

	Epsilon    float64 `koanf:"epsilon"`
	MinSamples int     `koanf:"min_samples"`
	Enabled    bool    `koanf:"enabled"`
}

// StoreConfig holds BadgerDB settings.
type StoreConfig struct {
	Path               string  `koanf:"path"`
	InMemory           bool    `koanf:"in_memory"`
	SyncWrites         bool    `koanf:"sync_writes"`
	Compression        bool    `koanf:"compression"`
	MaxConflictRetries int     `koanf:"max_conflict_retries"`
	GCDiscardRatio     float64 `koanf:"gc_discard_ratio"`

	// Circuit breaker
	BreakerMaxRequests      uint32        `koanf:"breaker_max_requests"`
	BreakerInterval         time.Duration `koanf:"breaker_interval"`
	BreakerTimeout          time.Duration `koanf:"breaker_timeout"`
	BreakerFailureThreshold uint32        `koanf:"breaker_failure_threshold"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes"`
	Environment     string        `koanf:"environment"` // "development", "staging", "production"
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig holds CORS and rate limit settings. Authentication is
// handled by the routing layer in front of the service.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	// SubmitRateLimitReqs is a tighter per-IP limit on report submission.
	SubmitRateLimitReqs int `koanf:"submit_rate_limit_reqs"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// TrustConfig converts the trust section. Record retention comes from the
// retention section so the sweeper and the admin cleanup agree.
func (c *Config) TrustConfig() trust.Config {
	t := c.Trust
	return trust.Config{
		InitialScore:       t.InitialScore,
		MinScore:           t.MinScore,
		MaxScore:           t.MaxScore,
		HistoryLimit:       t.HistoryLimit,
		LowTrustThreshold:  t.LowTrustThreshold,
		LowTrustWeight:     t.LowTrustWeight,
		HighTrustThreshold: t.HighTrustThreshold,
		Deltas: trust.Deltas{
			Verified:       t.VerifiedDelta,
			Fake:           t.FakeDelta,
			Duplicate:      t.DuplicateDelta,
			Resolved:       t.ResolvedDelta,
			ChatEngagement: t.ChatEngagementDelta,
		},
		TopOffenders:    t.TopOffenders,
		RecentHistory:   t.RecentHistory,
		MinPrefixLength: t.MinPrefixLength,
		RetentionMaxAge: c.Retention.MaxAge,
	}
}

// FloodConfig converts the flood section.
func (c *Config) FloodConfig() trust.FloodConfig {
	return trust.FloodConfig{
		Window:         c.Flood.Window,
		RadiusMeters:   c.Flood.RadiusMeters,
		PriorThreshold: c.Flood.PriorThreshold,
	}
}

// IntakeConfig converts the intake section.
func (c *Config) IntakeConfig() intake.Config {
	return intake.Config{
		DelayBase:         c.Intake.DelayBase,
		DelayJitter:       c.Intake.DelayJitter,
		ReferencePrefix:   c.Intake.ReferencePrefix,
		ReferenceAttempts: c.Intake.ReferenceAttempts,
		QueueLimit:        c.Intake.QueueLimit,
	}
}

// ClustererConfig converts the clusterer constants.
func (c *Config) ClustererConfig() clustering.Config {
	cl := c.Clustering
	return clustering.Config{
		Window:           cl.Window,
		MinWeight:        cl.MinWeight,
		DefaultWeight:    cl.DefaultWeight,
		DefaultScore:     cl.DefaultScore,
		MinRadiusMeters:  cl.MinRadiusMeters,
		CriticalAbove:    cl.CriticalAbove,
		HighAbove:        cl.HighAbove,
		HighConfidence:   cl.HighConfidence,
		MediumConfidence: cl.MediumConfidence,
	}
}

// ClusteringParams returns the initial DBSCAN parameters.
func (c *Config) ClusteringParams() models.ClusteringConfig {
	return models.ClusteringConfig{
		Epsilon:    c.Clustering.Epsilon,
		MinSamples: c.Clustering.MinSamples,
		Enabled:    c.Clustering.Enabled,
	}
}

// StoreConfig converts the store section.
func (c *Config) StoreConfig() store.Config {
	s := c.Store
	return store.Config{
		Path:               s.Path,
		InMemory:           s.InMemory,
		SyncWrites:         s.SyncWrites,
		Compression:        s.Compression,
		MaxConflictRetries: s.MaxConflictRetries,
		GCDiscardRatio:     s.GCDiscardRatio,
		Breaker: store.BreakerConfig{
			Name:             "store",
			MaxRequests:      s.BreakerMaxRequests,
			Interval:         s.BreakerInterval,
			Timeout:          s.BreakerTimeout,
			FailureThreshold: s.BreakerFailureThreshold,
		},
	}
}

// LoggingConfig converts the logging section.
func (c *Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.Logging.Level
	cfg.Format = c.Logging.Format
	cfg.Caller = c.Logging.Caller
	return cfg
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
