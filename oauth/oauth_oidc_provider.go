/*
Copyright (c) 2025 Red Hat Inc.

Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the
License. You may obtain a copy of the License at

  http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
"AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the specific
language governing permissions and limitations under the License.
*/

package oauth

import (
	"context"
	"crypto/x509"
	"errors"
	"log/slog"
	"time"

	"github.com/opencatalog/ingestion-common/auth"
)

// OidcProviderBuilder contains the logic needed to create a provider that performs a plain OpenID Connect client
// credentials exchange against an arbitrary token endpoint. When the endpoint rejects the request the resulting
// error carries the status code and the response body verbatim, so the caller can diagnose the exact upstream
// failure.
type OidcProviderBuilder struct {
	logger   *slog.Logger
	config   *GenericOidcConfig
	caPool   *x509.CertPool
	insecure bool
	timeout  time.Duration
}

type oidcProvider struct {
	logger    *slog.Logger
	config    *GenericOidcConfig
	exchanger *tokenExchanger
}

// NewOidcProvider creates a builder that can then be used to configure and create a provider that authenticates
// against a generic OpenID Connect token endpoint.
func NewOidcProvider() *OidcProviderBuilder {
	return &OidcProviderBuilder{}
}

// SetLogger sets the logger. This is mandatory.
func (b *OidcProviderBuilder) SetLogger(value *slog.Logger) *OidcProviderBuilder {
	b.logger = value
	return b
}

// SetConfig sets the generic OpenID Connect configuration. This is mandatory.
func (b *OidcProviderBuilder) SetConfig(value *GenericOidcConfig) *OidcProviderBuilder {
	b.config = value
	return b
}

// SetCaPool sets the certificate pool that contains the certificates of the certificate authorities that are trusted
// when connecting using TLS. This is optional, and the default is to trust the certificate authorities trusted by
// the operating system.
func (b *OidcProviderBuilder) SetCaPool(value *x509.CertPool) *OidcProviderBuilder {
	b.caPool = value
	return b
}

// SetInsecure sets whether to skip TLS certificate verification. This is optional and defaults to false.
func (b *OidcProviderBuilder) SetInsecure(value bool) *OidcProviderBuilder {
	b.insecure = value
	return b
}

// SetTimeout sets the maximum time to wait for the exchange to complete. This is optional and the default is thirty
// seconds.
func (b *OidcProviderBuilder) SetTimeout(value time.Duration) *OidcProviderBuilder {
	b.timeout = value
	return b
}

// Build uses the data stored in the builder to build a new OpenID Connect provider.
func (b *OidcProviderBuilder) Build() (result auth.Provider, err error) {
	// Check parameters:
	if b.logger == nil {
		err = errors.New("logger is mandatory")
		return
	}
	if b.config == nil {
		err = errors.New("configuration is mandatory")
		return
	}
	if b.config.ClientId == "" {
		err = errors.New("client identifier is mandatory")
		return
	}
	if b.config.ClientSecret == "" {
		err = errors.New("client secret is mandatory")
		return
	}
	if b.config.TokenEndpoint == "" {
		err = errors.New("token endpoint is mandatory")
		return
	}

	// Create the HTTP client:
	httpClient, err := buildHttpClient(b.logger, b.caPool, b.insecure, b.timeout)
	if err != nil {
		return
	}

	// Create and populate the object:
	result = &oidcProvider{
		logger: b.logger,
		config: b.config,
		exchanger: &tokenExchanger{
			logger: b.logger,
			client: httpClient,
		},
	}
	return
}

// Acquire is the implementation of the Provider interface.
func (p *oidcProvider) Acquire(ctx context.Context) (result *auth.Token, err error) {
	response, err := p.exchanger.sendTokenForm(ctx, p.config.TokenEndpoint, tokenEndpointRequest{
		GrantType:    "client_credentials",
		ClientId:     p.config.ClientId,
		ClientSecret: p.config.ClientSecret,
	})
	if err != nil {
		return
	}
	result = p.exchanger.tokenFromResponse(response)
	return
}
