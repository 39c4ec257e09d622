/*
Copyright (c) 2025 Red Hat Inc.

Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the
License. You may obtain a copy of the License at

  http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
"AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the specific
language governing permissions and limitations under the License.
*/

package auth

import (
	"context"
	"errors"
	"log/slog"
)

// NoTokenSentinel is the fixed value returned by the no-op provider.
const NoTokenSentinel = "no_token"

// NoopProviderBuilder contains the logic needed to create a provider for deployments that don't require
// authentication. The provider always returns the same sentinel token, without expiry, and never performs any
// network activity.
type NoopProviderBuilder struct {
	logger *slog.Logger
}

type noopProvider struct {
	logger *slog.Logger
}

// NewNoopProvider creates a builder that can then be used to configure and create a provider that requires no
// authentication.
func NewNoopProvider() *NoopProviderBuilder {
	return &NoopProviderBuilder{}
}

// SetLogger sets the logger. This is mandatory.
func (b *NoopProviderBuilder) SetLogger(value *slog.Logger) *NoopProviderBuilder {
	b.logger = value
	return b
}

// Build uses the data stored in the builder to build a new no-op provider.
func (b *NoopProviderBuilder) Build() (result Provider, err error) {
	// Check parameters:
	if b.logger == nil {
		err = errors.New("logger is mandatory")
		return
	}

	// Create and populate the object:
	result = &noopProvider{
		logger: b.logger,
	}
	return
}

// Acquire is the implementation of the Provider interface.
func (p *noopProvider) Acquire(ctx context.Context) (result *Token, err error) {
	result = &Token{
		Access: NoTokenSentinel,
	}
	return
}
