/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"net/http"
	"net/http/pprof"

	"github.com/amasilva36/secret-santa/santa"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks draw outcomes on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	// Generations by outcome: "ok", "insufficient", "exhausted"
	Generations *prometheus.CounterVec

	// Shuffles needed per successful generation
	Attempts prometheus.Histogram

	// Draw sessions currently held in memory
	Draws prometheus.Gauge
}

func newMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Generations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "secretsanta_generations_total",
			Help: "Assignment generations by outcome",
		}, []string{"outcome"}),

		Attempts: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "secretsanta_generation_attempts",
			Help:    "Shuffles tried before a valid assignment was found",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 50, 100, 1000},
		}),

		Draws: factory.NewGauge(prometheus.GaugeOpts{
			Name: "secretsanta_draws",
			Help: "Draw sessions currently held in memory",
		}),
	}
}

func (m *Metrics) observeGeneration(attempts int, err error) {
	if m == nil {
		return
	}

	switch {
	case err == nil:
		m.Generations.WithLabelValues("ok").Inc()
		m.Attempts.Observe(float64(attempts))
	case errors.Is(err, santa.ErrInsufficientParticipants):
		m.Generations.WithLabelValues("insufficient").Inc()
	default:
		m.Generations.WithLabelValues("exhausted").Inc()
	}
}

func (m *Metrics) setDraws(n int) {
	if m != nil {
		m.Draws.Set(float64(n))
	}
}

func registerMetricsHandler(cfg *Config, m *Metrics, mux *httprouter.Router) {
	mux.Handler(http.MethodGet, cfg.prefix+"/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

func registerProfileHandlers(cfg *Config, mux *httprouter.Router) {
	for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
		mux.Handler(http.MethodGet, cfg.prefix+"/pprof/"+name, pprof.Handler(name))
	}
	mux.HandlerFunc(http.MethodGet, cfg.prefix+"/pprof/cmdline", pprof.Cmdline)
	mux.HandlerFunc(http.MethodGet, cfg.prefix+"/pprof/profile", pprof.Profile)
	mux.HandlerFunc(http.MethodGet, cfg.prefix+"/pprof/symbol", pprof.Symbol)
	mux.HandlerFunc(http.MethodGet, cfg.prefix+"/pprof/trace", pprof.Trace)
}
