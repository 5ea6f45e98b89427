/*
Copyright 2020 Gravitational, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics collects phase and host outcome metrics of deployer runs
package metrics

import (
	"time"

	"github.com/gravitational/trace"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSucceeded labels hosts a step has succeeded on
	OutcomeSucceeded = "succeeded"
	// OutcomeFailed labels hosts a step has failed on
	OutcomeFailed = "failed"
)

// Metrics collects deployer metrics in a private registry
type Metrics struct {
	registry *prometheus.Registry
	// phases counts completed phases by terminal state
	phases *prometheus.CounterVec
	// hosts counts per-host step outcomes
	hosts *prometheus.CounterVec
	// steps measures how long each step takes to run
	steps *prometheus.HistogramVec
}

// New returns a new metrics collector
func New() *Metrics {
	phases := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "calyptos_phases_total",
		Help: "Number of completed deployment phases",
	}, []string{"phase", "state"})
	hosts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "calyptos_host_outcomes_total",
		Help: "Number of per-host step outcomes",
	}, []string{"phase", "step", "outcome"})
	steps := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "calyptos_step_duration_seconds",
		Help:    "Duration of a deployment step",
		Buckets: prometheus.ExponentialBuckets(1, 2, 14), // 1s to ~2h in 14 buckets
	}, []string{"phase", "step"})
	registry := prometheus.NewRegistry()
	registry.MustRegister(phases, hosts, steps)
	return &Metrics{
		registry: registry,
		phases:   phases,
		hosts:    hosts,
		steps:    steps,
	}
}

// PhaseCompleted records a phase that has reached the given terminal state
func (m *Metrics) PhaseCompleted(phase, state string) {
	m.phases.WithLabelValues(phase, state).Inc()
}

// StepCompleted records the duration and per-host outcomes of a step
func (m *Metrics) StepCompleted(phase, step string, duration time.Duration, succeeded, failed int) {
	m.steps.WithLabelValues(phase, step).Observe(duration.Seconds())
	m.hosts.WithLabelValues(phase, step, OutcomeSucceeded).Add(float64(succeeded))
	m.hosts.WithLabelValues(phase, step, OutcomeFailed).Add(float64(failed))
}

// Gatherer returns the registry with the collected metrics
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes the collected metrics to path in the text
// exposition format understood by the node exporter textfile collector
func (m *Metrics) WriteTextfile(path string) error {
	return trace.Wrap(prometheus.WriteToTextfile(path, m.registry))
}
