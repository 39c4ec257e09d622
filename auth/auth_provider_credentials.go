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

	"google.golang.org/grpc/credentials"
)

// ProviderCredentialsBuilder contains the logic needed to create credentials that implement the gRPC
// PerRPCCredentials interface by delegating to our internal Provider interface. This is intended for callers that
// talk to the metadata service over gRPC instead of REST.
type ProviderCredentialsBuilder struct {
	logger   *slog.Logger
	provider Provider
}

// providerCredentials implements the gRPC PerRPCCredentials interface by delegating to our internal Provider
// interface.
type providerCredentials struct {
	logger   *slog.Logger
	provider Provider
}

// NewProviderCredentials creates a builder that can then be used to configure and create credentials that implement
// the gRPC PerRPCCredentials interface.
func NewProviderCredentials() *ProviderCredentialsBuilder {
	return &ProviderCredentialsBuilder{}
}

// SetLogger sets the logger. This is mandatory.
func (b *ProviderCredentialsBuilder) SetLogger(value *slog.Logger) *ProviderCredentialsBuilder {
	b.logger = value
	return b
}

// SetProvider sets the internal authentication provider to delegate to. This is mandatory.
func (b *ProviderCredentialsBuilder) SetProvider(value Provider) *ProviderCredentialsBuilder {
	b.provider = value
	return b
}

// Build uses the data stored in the builder to build new provider credentials.
func (b *ProviderCredentialsBuilder) Build() (result credentials.PerRPCCredentials, err error) {
	// Check parameters:
	if b.logger == nil {
		err = errors.New("logger is mandatory")
		return
	}
	if b.provider == nil {
		err = errors.New("provider is mandatory")
		return
	}

	// Create and populate the object:
	result = &providerCredentials{
		logger:   b.logger,
		provider: b.provider,
	}
	return
}

// GetRequestMetadata is the implementation of the gRPC PerRPCCredentials interface. It acquires a fresh token from
// the provider and attaches it as a bearer authorization header.
func (c *providerCredentials) GetRequestMetadata(ctx context.Context, uri ...string) (result map[string]string,
	err error) {
	token, err := c.provider.Acquire(ctx)
	if err != nil {
		return
	}
	result = map[string]string{
		"Authorization": "Bearer " + token.Access,
	}
	return
}

// RequireTransportSecurity indicates whether the credentials require transport security. This returns true to ensure
// that tokens are only sent over secure connections.
func (c *providerCredentials) RequireTransportSecurity() bool {
	return true
}
