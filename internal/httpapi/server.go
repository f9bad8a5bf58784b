// Package httpapi serves the unauthenticated health-probe and metrics
// surface consumed by the cluster orchestrator.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nais/kafka-topic-backup/internal/appstate"
)

const bodyOK = "ok"
const bodyUnavailable = "Service Unavailable"

// Server is the thin health/metrics HTTP surface the cluster orchestrator
// polls to tell live, ready, and started apart.
type Server struct {
	http *http.Server
}

// New builds a Server bound to addr (the application passes "0.0.0.0:8080"), wired to the
// shared state and Prometheus registry.
func New(addr string, state *appstate.State, gatherer prometheus.Gatherer) *Server {
	r := chi.NewRouter()

	r.Get("/internal/isAlive", probeHandler(func() bool { return state.Alive() }))
	r.Get("/internal/isReady", probeHandler(func() bool { return state.Ready() }))
	r.Get("/internal/hasStarted", probeHandler(func() bool { return state.HasStarted() }))
	r.Handle("/internal/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return &Server{http: &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

func probeHandler(ok func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if ok() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(bodyOK))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(bodyUnavailable))
	}
}

// Run starts serving until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
