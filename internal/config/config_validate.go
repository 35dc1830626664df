// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package config

import (
	"fmt"
	"strings"
)

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	// Retention owns max_age; TrustConfig copies it, so check it here first.
	if err := c.Retention.Validate(); err != nil {
		return fmt.Errorf("retention: %w", err)
	}
	if err := c.TrustConfig().Validate(); err != nil {
		return fmt.Errorf("trust: %w", err)
	}
	if err := c.FloodConfig().Validate(); err != nil {
		return fmt.Errorf("flood: %w", err)
	}
	if err := c.IntakeConfig().Validate(); err != nil {
		return fmt.Errorf("intake: %w", err)
	}
	if err := c.validateClustering(); err != nil {
		return fmt.Errorf("clustering: %w", err)
	}
	if err := c.Scheduler.Validate(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	if err := c.validateStore(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := c.validateServer(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.validateSecurity(); err != nil {
		return fmt.Errorf("security: %w", err)
	}
	return c.validateLogging()
}

// validateClustering validates the clusterer constants and initial DBSCAN
// parameters.
func (c *Config) validateClustering() error {
	if err := c.ClustererConfig().Validate(); err != nil {
		return err
	}
	if c.Clustering.Epsilon <= 0 || c.Clustering.Epsilon > 1 {
		return fmt.Errorf("epsilon (%v) must be within (0, 1]", c.Clustering.Epsilon)
	}
	if c.Clustering.MinSamples < 1 {
		return fmt.Errorf("min_samples must be at least 1")
	}
	return nil
}

// validateStore validates the store configuration.
func (c *Config) validateStore() error {
	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("path is required unless in_memory is set")
	}
	if c.Store.MaxConflictRetries < 1 {
		return fmt.Errorf("max_conflict_retries must be at least 1")
	}
	if c.Store.GCDiscardRatio <= 0 || c.Store.GCDiscardRatio >= 1 {
		return fmt.Errorf("gc_discard_ratio (%v) must be within (0, 1)", c.Store.GCDiscardRatio)
	}
	if c.Store.BreakerFailureThreshold == 0 {
		return fmt.Errorf("breaker_failure_threshold must be positive")
	}
	return nil
}

// validateServer validates the HTTP server configuration.
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("read_timeout and write_timeout must be positive")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be positive")
	}
	return nil
}

// validateSecurity validates rate limits and CORS.
func (c *Config) validateSecurity() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("rate_limit_reqs must be at least 1")
	}
	if c.Security.SubmitRateLimitReqs < 1 {
		return fmt.Errorf("submit_rate_limit_reqs must be at least 1")
	}
	if c.Security.RateLimitWindow <= 0 {
		return fmt.Errorf("rate_limit_window must be positive")
	}
	return nil
}

// ShouldWarnAboutCORS returns true if wildcard CORS is configured in
// production.
func (c *Config) ShouldWarnAboutCORS() bool {
	if !c.IsProduction() {
		return false
	}
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// validateLogging validates the logging configuration.
func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return fmt.Errorf("logging: invalid level %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("logging: invalid format %q (must be json or console)", c.Logging.Format)
	}
	return nil
}
