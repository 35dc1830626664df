// TrustBond - Trust-Weighted Incident Hotspot Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustbond

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/trustbond/internal/middleware"
)

// Router wires handlers and middleware into a chi router.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. A nil middleware config uses the defaults.
func NewRouter(handler *Handler, config *ChiMiddlewareConfig) *Router {
	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(config),
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered
	r.Use(middleware.PrometheusMetrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, CodeNotFound, "Resource not found", nil, nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil, nil)
	})

	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Get("/health", router.handler.Health)
		r.Handle("/metrics", promhttp.Handler())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(chimiddleware.Compress(5, "application/json"))

		r.Route("/reports", func(r chi.Router) {
			r.With(router.chiMiddleware.SubmitRateLimit()).Post("/", router.handler.SubmitReport)
			r.Get("/", router.handler.ListReports)
			r.Get("/queue/low-trust", router.handler.LowTrustQueue)
			r.Get("/reference/{code}", router.handler.GetReportByReference)
			r.Get("/{id}", router.handler.GetReport)
			r.Post("/{id}/mark-fake", router.handler.MarkFake)
			r.Post("/{id}/verify", router.handler.Verify)
			r.Post("/{id}/resolve", router.handler.Resolve)
			r.Post("/{id}/approve-delayed", router.handler.ApproveDelayed)
		})

		r.Route("/clusters", func(r chi.Router) {
			r.Get("/", router.handler.Clusters)
			r.Post("/refresh", router.handler.RefreshClusters)
			r.Get("/params", router.handler.GetClusteringParams)
			r.Put("/params", router.handler.UpdateClusteringParams)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/abuse/analytics", router.handler.AbuseAnalytics)
			r.Get("/abuse/low-trust-devices", router.handler.LowTrustDevices)
			r.Get("/abuse/flagged-reports", router.handler.FlaggedReports)
			r.Post("/abuse/cleanup", router.handler.Cleanup)
			r.Get("/trust/device/{prefix}", router.handler.DeviceTrust)
		})
	})

	return r
}
