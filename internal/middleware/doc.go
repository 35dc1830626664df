// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

/*
Package middleware provides HTTP middleware components shared by the API.

Key Components:

  - Request ID: UUID-based request tracking; the id is echoed in the
    X-Request-ID response header and attached to the logging context so
    every log line of a request carries it
  - Prometheus Metrics: request counts and latency labelled by the chi
    route pattern, so path parameters such as report ids never become label
    values

Both are chi-compatible (func(http.Handler) http.Handler):

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)

CORS, rate limiting and panic recovery come from the chi ecosystem and are
wired in the api package.
*/
package middleware
