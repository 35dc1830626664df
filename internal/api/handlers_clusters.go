// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/trustbond/internal/logging"
	"github.com/tomtom215/trustbond/internal/models"
)

// ClustersResponse is the hotspot snapshot.
type ClustersResponse struct {
	Clusters    []models.Cluster `json:"clusters"`
	Count       int              `json:"count"`
	RunID       string           `json:"run_id,omitempty"`
	GeneratedAt *time.Time       `json:"generated_at,omitempty"`
}

// Clusters handles GET /api/v1/clusters. By default it returns the newest
// run no older than the snapshot age; ?history=true returns every stored
// cluster in that window, newest first.
func (h *Handler) Clusters(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	since := h.now().Add(-h.config.ClusterMaxAge)

	var (
		clusters []models.Cluster
		err      error
	)
	if getBoolParam(r, "history") {
		clusters, err = h.store.ListClustersSince(r.Context(), since, h.limit(getIntParam(r, "limit", 0)))
	} else {
		clusters, err = h.store.LatestClusters(r.Context(), since)
	}
	if err != nil {
		respondErr(w, r, err)
		return
	}

	resp := ClustersResponse{Clusters: clusters, Count: len(clusters)}
	if resp.Clusters == nil {
		resp.Clusters = []models.Cluster{}
	}
	if len(clusters) > 0 {
		resp.RunID = clusters[0].RunID
		at := clusters[0].Timestamp
		resp.GeneratedAt = &at
	}
	respondSuccess(w, http.StatusOK, resp, start)
}

// RefreshClusters handles POST /api/v1/clusters/refresh.
func (h *Handler) RefreshClusters(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result, err := h.clusters.RunOnce(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, result, start)
}

// GetClusteringParams handles GET /api/v1/clusters/params.
func (h *Handler) GetClusteringParams(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	params, err := h.store.LoadClusteringConfig(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondSuccess(w, http.StatusOK, params, start)
}

// UpdateClusteringParams handles PUT /api/v1/clusters/params. The next
// cycle picks up the new values.
func (h *Handler) UpdateClusteringParams(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var params models.ClusteringConfig
	if !decodeJSON(w, r, h.config.MaxBodyBytes, &params) {
		return
	}
	if !validateRequest(w, r, &params) {
		return
	}

	if err := h.store.SaveClusteringConfig(r.Context(), params); err != nil {
		respondErr(w, r, err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Float64("epsilon", params.Epsilon).
		Int("min_samples", params.MinSamples).
		Bool("enabled", params.Enabled).
		Msg("Clustering parameters updated")
	respondSuccess(w, http.StatusOK, params, start)
}
