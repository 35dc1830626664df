// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

/*
Package config provides centralized configuration management for TrustBond.

Configuration is loaded with Koanf v2 in three layers, later layers winning:

 1. Defaults: built-in values from defaultConfig()
 2. Config file: optional YAML file (CONFIG_PATH, or config.yaml in the
    working directory, or /etc/trustbond/config.yaml)
 3. Environment variables: an explicit mapping table; unmapped variables
    are ignored

# Sections

  - trust: score bounds, thresholds, adjustment deltas, history limit
  - flood: window, radius and prior-report threshold of the flood check
  - intake: low-trust delay, reference codes, admin list limits
  - clustering: clusterer constants and the initial DBSCAN parameters
  - scheduler: clustering cycle interval, retry delay, health threshold
  - retention: sweep interval and maximum record age
  - store: Badger path, durability, conflict retries, circuit breaker
  - server: HTTP bind address and timeouts
  - security: CORS origins and per-IP rate limits
  - events: in-process event feed
  - logging: level, format, caller

# Environment Variables

A selection of the supported variables:

  - HTTP_HOST, HTTP_PORT: bind address (default: 0.0.0.0:8080)
  - STORE_PATH: Badger directory (default: ./data/trustbond)
  - STORE_IN_MEMORY: keep all data in memory (default: false)
  - TRUST_LOW_THRESHOLD: scores below this are delayed (default: 40)
  - FLOOD_WINDOW, FLOOD_RADIUS_METERS, FLOOD_PRIOR_THRESHOLD
  - CLUSTERING_EPSILON, CLUSTERING_MIN_SAMPLES, CLUSTERING_ENABLED
  - SCHEDULER_INTERVAL, SCHEDULER_RETRY_DELAY
  - RETENTION_INTERVAL, RETENTION_MAX_AGE
  - CORS_ORIGINS: comma-separated list
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

See envMappings in koanf.go for the complete table.

# Usage

	cfg, err := config.Load()
	if err != nil {
	    logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	ledger := trust.NewLedger(st, cfg.TrustConfig())

Validate runs as part of Load and rejects impossible values such as a
low-trust threshold above the high-trust threshold or a non-positive
interval.
*/
package config
