// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package metrics exposes Prometheus collectors for the HTTP surface and the
// token lifecycle.
//
// # Architecture
//
// Collectors are registered on an explicit [prometheus.Registry] rather than the
// global default, so tests can build isolated instances. The [Metrics] type also
// satisfies the observer contract consumed by the session service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gatekeep"

// Metrics holds every collector exported by the service.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Session metrics
	LoginsTotal          *prometheus.CounterVec
	RefreshesTotal       *prometheus.CounterVec
	LogoutsTotal         prometheus.Counter
	RefreshTokensIssued  prometheus.Counter
	RefreshTokensRevoked *prometheus.CounterVec
	RefreshTokensSwept   prometheus.Counter
}

// New creates the collectors and registers them, plus the Go runtime and
// process collectors, on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "logins_total",
				Help:      "Login attempts by outcome",
			},
			[]string{"outcome"},
		),
		RefreshesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "refreshes_total",
				Help:      "Refresh attempts by outcome",
			},
			[]string{"outcome"},
		),
		LogoutsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "logouts_total",
				Help:      "Logout requests",
			},
		),
		RefreshTokensIssued: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "refresh_tokens",
				Name:      "issued_total",
				Help:      "Refresh tokens generated",
			},
		),
		RefreshTokensRevoked: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "refresh_tokens",
				Name:      "revoked_total",
				Help:      "Refresh tokens deactivated, by reason",
			},
			[]string{"reason"},
		),
		RefreshTokensSwept: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "refresh_tokens",
				Name:      "swept_total",
				Help:      "Expired refresh tokens physically deleted",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.LoginsTotal,
		m.RefreshesTotal,
		m.LogoutsTotal,
		m.RefreshTokensIssued,
		m.RefreshTokensRevoked,
		m.RefreshTokensSwept,
	)

	return m
}

// Registry returns the registry backing these collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// # Session Observer

// LoginAttempt records a login outcome such as "success" or "locked".
func (m *Metrics) LoginAttempt(outcome string) {
	m.LoginsTotal.WithLabelValues(outcome).Inc()
}

// RefreshAttempt records a refresh outcome.
func (m *Metrics) RefreshAttempt(outcome string) {
	m.RefreshesTotal.WithLabelValues(outcome).Inc()
}

// Logout records a logout request.
func (m *Metrics) Logout() {
	m.LogoutsTotal.Inc()
}

// RefreshTokenIssued records a newly generated refresh token.
func (m *Metrics) RefreshTokenIssued() {
	m.RefreshTokensIssued.Inc()
}

// RefreshTokensRevokedBy records count tokens deactivated for reason.
func (m *Metrics) RefreshTokensRevokedBy(reason string, count int64) {
	if count > 0 {
		m.RefreshTokensRevoked.WithLabelValues(reason).Add(float64(count))
	}
}

// RefreshTokensSweptCount records tokens deleted by the expiry sweep.
func (m *Metrics) RefreshTokensSweptCount(count int64) {
	if count > 0 {
		m.RefreshTokensSwept.Add(float64(count))
	}
}

// # HTTP Middleware

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (recorder *statusRecorder) WriteHeader(code int) {
	recorder.status = code
	recorder.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency keyed by the chi route pattern,
// which keeps label cardinality bounded regardless of path parameters.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		startTime := time.Now()
		recorder := &statusRecorder{ResponseWriter: writer, status: http.StatusOK}

		next.ServeHTTP(recorder, request)

		route := "unmatched"
		if routeContext := chi.RouteContext(request.Context()); routeContext != nil {
			if pattern := routeContext.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		m.HTTPRequestsTotal.WithLabelValues(request.Method, route, strconv.Itoa(recorder.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(request.Method, route).Observe(time.Since(startTime).Seconds())
	})
}
