// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

/*
Package main is the entry point for the TrustBond server.

TrustBond scores anonymous incident reports by the reputation of the device
that filed them and clusters recent reports into trust-weighted hotspots.

Component initialization order:

 1. Configuration: Koanf v2 (defaults, then config.yaml, then environment)
 2. Logging: zerolog, with a slog bridge for the supervisor
 3. Store: embedded BadgerDB behind a circuit breaker
 4. Trust: ledger, flood detector and weight calculator
 5. Events: Watermill in-process pub/sub (optional)
 6. Intake: submission guard and feedback service
 7. Jobs: clustering scheduler and retention sweeper
 8. HTTP: chi router with CORS, rate limiting and Prometheus metrics

Everything long-running runs under a suture v4 tree:

	RootSupervisor ("trustbond")
	├── JobsSupervisor ("jobs-layer")
	│   ├── ClusterSchedulerService
	│   └── RetentionSweeperService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

SIGINT and SIGTERM cancel the root context; services stop in reverse and the
store is closed last.

Example:

	export STORE_PATH=/var/lib/trustbond
	export LOG_LEVEL=info
	./trustbond
*/
package main
