// Copyright 2025 Constellation 2.0
//
// Package metrics is the kernel's prometheus registry: one counter per
// stage/outcome/reason_code, and one duration histogram per stage. The
// teacher's go.mod carries client_golang without ever registering a
// metric in the retrieved files; this package is where the dependency
// finally gets a real job.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome is the closed set of stage-run results a counter can record.
type Outcome string

const (
	OutcomeOK   Outcome = "OK"
	OutcomeVeto Outcome = "VETO"
	OutcomeFail Outcome = "FAIL"
)

// Registry holds every metric the kernel emits, all registered against
// a single prometheus.Registerer so main can expose them on one handler.
type Registry struct {
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// New registers the kernel's metrics against reg and returns a Registry
// ready for use. reg is typically prometheus.NewRegistry() in tests and
// prometheus.DefaultRegisterer in production.
func New(reg prometheus.Registerer) (*Registry, error) {
	invocations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "c2_kernel",
		Name:      "stage_invocations_total",
		Help:      "Count of stage invocations by stage, outcome, and reason code.",
	}, []string{"stage", "outcome", "reason_code"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "c2_kernel",
		Name:      "stage_duration_seconds",
		Help:      "Stage run duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stage"})

	if err := reg.Register(invocations); err != nil {
		return nil, err
	}
	if err := reg.Register(duration); err != nil {
		return nil, err
	}

	return &Registry{invocations: invocations, duration: duration}, nil
}

// RecordInvocation increments the invocation counter for a stage run.
// reasonCode may be empty for an OK outcome with nothing to report.
func (r *Registry) RecordInvocation(stage string, outcome Outcome, reasonCode string) {
	r.invocations.WithLabelValues(stage, string(outcome), reasonCode).Inc()
}

// ObserveDuration records how long a stage run took.
func (r *Registry) ObserveDuration(stage string, d time.Duration) {
	r.duration.WithLabelValues(stage).Observe(d.Seconds())
}

// Timer starts a duration observation for stage, stopped by calling the
// returned func once the stage run completes.
func (r *Registry) Timer(stage string) func() {
	start := time.Now()
	return func() { r.ObserveDuration(stage, time.Since(start)) }
}
