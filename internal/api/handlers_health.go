// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/trustbond/internal/models"
)

// Health handles GET /health. The service is "degraded" while the store
// breaker is open or the clustering scheduler is unhealthy; the endpoint
// itself always answers 200 so liveness probes do not restart a process
// that is waiting out a store outage.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	health := models.HealthStatus{
		Status:  "healthy",
		Version: h.config.Version,
		Uptime:  time.Since(h.startTime).Seconds(),
	}
	if h.clusters != nil {
		health.Scheduler = h.clusters.Health()
		if !health.Scheduler.Healthy {
			health.Status = "degraded"
		}
	}
	if h.store.BreakerState() == "open" {
		health.Status = "degraded"
	}

	respondSuccess(w, http.StatusOK, health, start)
}
