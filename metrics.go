// Copyright 2024 The inflight Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package inflight

import (
	"github.com/gogama/inflight/request"
	"github.com/gogama/inflight/transient"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors a Tracker updates as requests
// start and complete. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// inFlight gauges the number of requests currently tracked.
	inFlight prometheus.Gauge

	// requests counts delivered results by method and outcome.
	requests *prometheus.CounterVec

	// timeouts counts requests whose time bound expired.
	timeouts prometheus.Counter

	// transportErrors counts transport failures by transience category.
	transportErrors *prometheus.CounterVec

	// duration summarizes the time from issue to outcome.
	duration *prometheus.SummaryVec
}

// durationObjectives returns the summary objectives for the duration
// summary.
func durationObjectives() map[float64]float64 {
	return map[float64]float64{
		0.5:  0.010,
		0.9:  0.010,
		0.99: 0.001,
	}
}

// NewMetrics creates the tracker collectors and registers them with
// reg. If reg is nil the collectors are created but not registered,
// which is handy in tests. The namespace prefixes every metric name and
// may be empty.
//
// NewMetrics panics if registration fails, for example because another
// set of tracker metrics with the same namespace is already registered
// with reg.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests_inflight",
			Help:      "The number of requests currently tracked",
		}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of delivered request results",
		}, []string{"method", "outcome"}),
		timeouts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timeouts_total",
			Help:      "Total number of requests whose time bound expired",
		}),
		transportErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transport_errors_total",
			Help:      "Total number of transport failures by transience category",
		}, []string{"category"}),
		duration: f.NewSummaryVec(prometheus.SummaryOpts{
			Namespace:  namespace,
			Name:       "request_duration_seconds",
			Help:       "Summarizes the time from issue to outcome (in seconds)",
			Objectives: durationObjectives(),
		}, []string{"outcome"}),
	}
}

func (m *Metrics) started() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *Metrics) delivered(r *request.Result) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	outcome := r.Outcome.String()
	m.requests.WithLabelValues(r.Plan.Method, outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(r.Duration().Seconds())
	switch r.Outcome {
	case request.TimedOut:
		m.timeouts.Inc()
	case request.TransportError:
		m.transportErrors.WithLabelValues(transient.Categorize(r.Err).String()).Inc()
	}
}
