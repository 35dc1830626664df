// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/trustbond/internal/events"
	"github.com/tomtom215/trustbond/internal/scheduler"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/trustbond/config.yaml",
	"/etc/trustbond/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
func defaultConfig() *Config {
	return &Config{
		Trust: TrustConfig{
			InitialScore:        50,
			MinScore:            0,
			MaxScore:            100,
			HistoryLimit:        50,
			LowTrustThreshold:   40,
			LowTrustWeight:      0.1,
			HighTrustThreshold:  70,
			VerifiedDelta:       5,
			FakeDelta:           -20,
			DuplicateDelta:      -10,
			ResolvedDelta:       3,
			ChatEngagementDelta: 2,
			TopOffenders:        10,
			RecentHistory:       10,
			MinPrefixLength:     8,
		},
		Flood: FloodConfig{
			Window:         10 * time.Minute,
			RadiusMeters:   100,
			PriorThreshold: 3,
		},
		Intake: IntakeConfig{
			DelayBase:         time.Hour,
			DelayJitter:       time.Hour,
			ReferencePrefix:   "TB",
			ReferenceAttempts: 3,
			QueueLimit:        100,
		},
		Clustering: ClusteringConfig{
			Window:           24 * time.Hour,
			MinWeight:        0.3,
			DefaultWeight:    0.5,
			DefaultScore:     50,
			MinRadiusMeters:  100,
			CriticalAbove:    8,
			HighAbove:        4,
			HighConfidence:   70,
			MediumConfidence: 40,
			Epsilon:          0.005, // roughly 500 m
			MinSamples:       3,
			Enabled:          true,
		},
		Scheduler: scheduler.DefaultConfig(),
		Retention: scheduler.DefaultRetentionConfig(),
		Store: StoreConfig{
			Path:                    "./data/trustbond",
			InMemory:                false,
			SyncWrites:              true,
			Compression:             true,
			MaxConflictRetries:      100,
			GCDiscardRatio:          0.5,
			BreakerMaxRequests:      1,
			BreakerInterval:         60 * time.Second,
			BreakerTimeout:          30 * time.Second,
			BreakerFailureThreshold: 5,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    1 << 20, // 1MB
			Environment:     "development",
		},
		Security: SecurityConfig{
			CORSOrigins:         []string{"*"},
			RateLimitReqs:       100,
			RateLimitWindow:     time.Minute,
			RateLimitDisabled:   false,
			SubmitRateLimitReqs: 10,
		},
		Events: events.DefaultConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any mapped setting
func Load() (*Config, error) {
	return load(findConfigFile())
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings; YAML lists are left alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
var envMappings = map[string]string{
	// Trust scoring
	"trust_initial_score":     "trust.initial_score",
	"trust_min_score":         "trust.min_score",
	"trust_max_score":         "trust.max_score",
	"trust_history_limit":     "trust.history_limit",
	"trust_low_threshold":     "trust.low_trust_threshold",
	"trust_low_weight":        "trust.low_trust_weight",
	"trust_high_threshold":    "trust.high_trust_threshold",
	"trust_verified_delta":    "trust.verified_delta",
	"trust_fake_delta":        "trust.fake_delta",
	"trust_duplicate_delta":   "trust.duplicate_delta",
	"trust_resolved_delta":    "trust.resolved_delta",
	"trust_chat_delta":        "trust.chat_engagement_delta",
	"trust_top_offenders":     "trust.top_offenders",
	"trust_recent_history":    "trust.recent_history",
	"trust_min_prefix_length": "trust.min_prefix_length",

	// Flood detection
	"flood_window":          "flood.window",
	"flood_radius_meters":   "flood.radius_meters",
	"flood_prior_threshold": "flood.prior_threshold",

	// Intake
	"intake_delay_base":         "intake.delay_base",
	"intake_delay_jitter":       "intake.delay_jitter",
	"intake_reference_prefix":   "intake.reference_prefix",
	"intake_reference_attempts": "intake.reference_attempts",
	"intake_queue_limit":        "intake.queue_limit",

	// Clustering
	"clustering_window":            "clustering.window",
	"clustering_min_weight":        "clustering.min_weight",
	"clustering_min_radius_meters": "clustering.min_radius_meters",
	"clustering_critical_above":    "clustering.critical_above",
	"clustering_high_above":        "clustering.high_above",
	"clustering_epsilon":           "clustering.epsilon",
	"clustering_min_samples":       "clustering.min_samples",
	"clustering_enabled":           "clustering.enabled",

	// Scheduler
	"scheduler_enabled":         "scheduler.enabled",
	"scheduler_interval":        "scheduler.interval",
	"scheduler_retry_delay":     "scheduler.retry_delay",
	"scheduler_cluster_max_age": "scheduler.cluster_max_age",
	"scheduler_unhealthy_after": "scheduler.unhealthy_after",
	"scheduler_cycle_timeout":   "scheduler.cycle_timeout",

	// Retention
	"retention_enabled":  "retention.enabled",
	"retention_interval": "retention.interval",
	"retention_max_age":  "retention.max_age",

	// Store
	"store_path":                      "store.path",
	"store_in_memory":                 "store.in_memory",
	"store_sync_writes":               "store.sync_writes",
	"store_compression":               "store.compression",
	"store_max_conflict_retries":      "store.max_conflict_retries",
	"store_gc_discard_ratio":          "store.gc_discard_ratio",
	"store_breaker_timeout":           "store.breaker_timeout",
	"store_breaker_failure_threshold": "store.breaker_failure_threshold",

	// Server
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_idle_timeout":     "server.idle_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"http_max_body_bytes":   "server.max_body_bytes",
	"environment":           "server.environment",

	// Security
	"cors_origins":               "security.cors_origins",
	"rate_limit_requests":        "security.rate_limit_reqs",
	"rate_limit_window":          "security.rate_limit_window",
	"disable_rate_limit":         "security.rate_limit_disabled",
	"submit_rate_limit_requests": "security.submit_rate_limit_reqs",

	// Events
	"events_enabled":       "events.enabled",
	"events_output_buffer": "events.output_buffer",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
// Unmapped variables return "" and are skipped so unrelated environment
// does not pollute the configuration.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - CLUSTERING_EPSILON -> clustering.epsilon
//   - LOG_LEVEL -> logging.level
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
