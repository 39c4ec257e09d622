/*
Copyright (c) 2025 Red Hat Inc.

Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the
License. You may obtain a copy of the License at

  http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
"AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the specific
language governing permissions and limitations under the License.
*/

// This file contains the implementation of a provider decorator that generates Prometheus metrics.

package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/opencatalog/ingestion-common/auth"
)

// ProviderMetricsBuilder contains the data and logic needed to build a decorator that wraps an authentication
// provider and generates the following Prometheus metrics:
//
//	<subsystem>_acquire_count - Number of token acquisitions attempted.
//	<subsystem>_acquire_duration - Duration of token acquisitions in seconds.
//
// To set the subsystem prefix use the SetSubsystem method.
//
// The metrics will have the following labels:
//
//	backend - Name of the authentication backend, for example enterprise-idp.
//	result - Either success or failure.
//
// Don't create objects of this type directly; use the NewProviderMetrics function instead.
type ProviderMetricsBuilder struct {
	subsystem  string
	backend    string
	provider   auth.Provider
	registerer prometheus.Registerer
}

type providerMetrics struct {
	backend         string
	provider        auth.Provider
	acquireCount    *prometheus.CounterVec
	acquireDuration *prometheus.HistogramVec
}

// NewProviderMetrics creates a builder that can then be used to configure and create a new metrics decorator.
func NewProviderMetrics() *ProviderMetricsBuilder {
	return &ProviderMetricsBuilder{
		registerer: prometheus.DefaultRegisterer,
	}
}

// SetSubsystem sets the name of the subsystem that will be used to register the metrics with Prometheus. This is
// mandatory.
func (b *ProviderMetricsBuilder) SetSubsystem(value string) *ProviderMetricsBuilder {
	b.subsystem = value
	return b
}

// SetBackend sets the name of the authentication backend that will be used as the value of the backend label. This
// is mandatory.
func (b *ProviderMetricsBuilder) SetBackend(value string) *ProviderMetricsBuilder {
	b.backend = value
	return b
}

// SetProvider sets the provider to decorate. This is mandatory.
func (b *ProviderMetricsBuilder) SetProvider(value auth.Provider) *ProviderMetricsBuilder {
	b.provider = value
	return b
}

// SetRegisterer sets the Prometheus registerer that will be used to register the metrics. The default is to use the
// default Prometheus registerer and there is usually no need to change that. This is intended for unit tests, where
// it is convenient to have a registerer that doesn't interfere with the rest of the system.
func (b *ProviderMetricsBuilder) SetRegisterer(value prometheus.Registerer) *ProviderMetricsBuilder {
	b.registerer = value
	return b
}

// Build uses the information stored in the builder to create a new metrics decorator.
func (b *ProviderMetricsBuilder) Build() (result auth.Provider, err error) {
	// Check parameters:
	if b.subsystem == "" {
		err = errors.New("subsystem is mandatory")
		return
	}
	if b.backend == "" {
		err = errors.New("backend is mandatory")
		return
	}
	if b.provider == nil {
		err = errors.New("provider is mandatory")
		return
	}

	// Set the default registerer if needed:
	registerer := b.registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	// Register the acquisition count metric:
	acquireCount := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: b.subsystem,
			Name:      "acquire_count",
			Help:      "Number of token acquisitions attempted.",
		},
		acquireLabelNames,
	)
	err = registerer.Register(acquireCount)
	if err != nil {
		registered, ok := err.(prometheus.AlreadyRegisteredError)
		if ok {
			acquireCount = registered.ExistingCollector.(*prometheus.CounterVec)
			err = nil
		} else {
			return
		}
	}

	// Register the acquisition duration metric:
	acquireDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Subsystem: b.subsystem,
			Name:      "acquire_duration",
			Help:      "Duration of token acquisitions in seconds.",
			Buckets:   acquireDurationBuckets,
		},
		acquireLabelNames,
	)
	err = registerer.Register(acquireDuration)
	if err != nil {
		registered, ok := err.(prometheus.AlreadyRegisteredError)
		if ok {
			acquireDuration = registered.ExistingCollector.(*prometheus.HistogramVec)
			err = nil
		} else {
			return
		}
	}

	// Create and populate the object:
	result = &providerMetrics{
		backend:         b.backend,
		provider:        b.provider,
		acquireCount:    acquireCount,
		acquireDuration: acquireDuration,
	}
	return
}

// Acquire is the implementation of the Provider interface. It delegates to the decorated provider and records the
// outcome and the duration.
func (m *providerMetrics) Acquire(ctx context.Context) (result *auth.Token, err error) {
	start := time.Now()
	result, err = m.provider.Acquire(ctx)
	elapsed := time.Since(start)
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	labels := prometheus.Labels{
		acquireBackendLabel: m.backend,
		acquireResultLabel:  outcome,
	}
	m.acquireCount.With(labels).Inc()
	m.acquireDuration.With(labels).Observe(elapsed.Seconds())
	return
}

// Names of the metric labels:
const (
	acquireBackendLabel = "backend"
	acquireResultLabel  = "result"
)

// acquireLabelNames are the labels added to the acquisition metrics:
var acquireLabelNames = []string{
	acquireBackendLabel,
	acquireResultLabel,
}

// acquireDurationBuckets are the histogram buckets used for the acquisition duration metric:
var acquireDurationBuckets = []float64{
	0.1,
	1.0,
	10.0,
	30.0,
}
