// Copyright 2026 Daniel Vask.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package metrics exports request and scenario outcomes to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dvask/surge/worker"
)

// Collector implements worker.EventSink's OnRequest and OnScenario
// methods on top of a Prometheus registry. All metrics live under the
// surge_ prefix; the outcome label is the HTTP status as text or an
// error category like "transport_error".
type Collector struct {
	requests    *prometheus.CounterVec
	requestDur  *prometheus.HistogramVec
	scenarios   *prometheus.CounterVec
	scenarioDur *prometheus.HistogramVec
	stepDur     *prometheus.HistogramVec
}

// NewCollector builds the metric vectors and registers them with reg.
// It panics on registration conflicts, which only happen when two
// collectors share one registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "surge_requests_total",
			Help: "Requests sent, by outcome.",
		}, []string{"outcome"}),
		requestDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "surge_request_duration_seconds",
			Help:    "Request latency, by outcome.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}, []string{"outcome"}),
		scenarios: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "surge_scenarios_total",
			Help: "Scenario executions, by scenario name.",
		}, []string{"scenario"}),
		scenarioDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "surge_scenario_duration_seconds",
			Help:    "Whole-scenario elapsed time, by scenario name.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 15),
		}, []string{"scenario"}),
		stepDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "surge_step_duration_seconds",
			Help:    "Per-step elapsed time, by scenario and step name.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}, []string{"scenario", "step"}),
	}
	reg.MustRegister(c.requests, c.requestDur, c.scenarios, c.scenarioDur, c.stepDur)
	return c
}

// OnRequest implements worker.EventSink's OnRequest method.
func (c *Collector) OnRequest(label string, elapsed time.Duration) {
	c.requests.WithLabelValues(label).Inc()
	c.requestDur.WithLabelValues(label).Observe(elapsed.Seconds())
}

// OnScenario implements worker.EventSink's OnScenario method.
func (c *Collector) OnScenario(name string, elapsed time.Duration, steps []worker.StepTiming) {
	c.scenarios.WithLabelValues(name).Inc()
	c.scenarioDur.WithLabelValues(name).Observe(elapsed.Seconds())
	for _, s := range steps {
		c.stepDur.WithLabelValues(name, s.Name).Observe(s.Elapsed.Seconds())
	}
}

// Serve exposes reg on addr under /metrics until ctx is cancelled.
func Serve(ctx context.Context, addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
