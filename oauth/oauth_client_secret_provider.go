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
	"fmt"
	"log/slog"
	"time"

	"github.com/opencatalog/ingestion-common/auth"
)

// ClientSecretProviderBuilder contains the logic needed to create a provider that performs a minimal client
// credentials exchange against a fixed path under the configured domain: the request is sent to
// 'https://{domain}/oauth/token' and the requested audience is 'https://{domain}/api/v2/'. It uses the same HTTP
// exchange as the other providers, so timeout, TLS and error mapping behavior don't diverge.
type ClientSecretProviderBuilder struct {
	logger   *slog.Logger
	config   *GenericSecretConfig
	caPool   *x509.CertPool
	insecure bool
	timeout  time.Duration
}

type clientSecretProvider struct {
	logger    *slog.Logger
	config    *GenericSecretConfig
	endpoint  string
	audience  string
	exchanger *tokenExchanger
}

// NewClientSecretProvider creates a builder that can then be used to configure and create a provider that
// authenticates with a client secret under a configured domain.
func NewClientSecretProvider() *ClientSecretProviderBuilder {
	return &ClientSecretProviderBuilder{}
}

// SetLogger sets the logger. This is mandatory.
func (b *ClientSecretProviderBuilder) SetLogger(value *slog.Logger) *ClientSecretProviderBuilder {
	b.logger = value
	return b
}

// SetConfig sets the generic client secret configuration. This is mandatory.
func (b *ClientSecretProviderBuilder) SetConfig(value *GenericSecretConfig) *ClientSecretProviderBuilder {
	b.config = value
	return b
}

// SetCaPool sets the certificate pool that contains the certificates of the certificate authorities that are trusted
// when connecting using TLS. This is optional, and the default is to trust the certificate authorities trusted by
// the operating system.
func (b *ClientSecretProviderBuilder) SetCaPool(value *x509.CertPool) *ClientSecretProviderBuilder {
	b.caPool = value
	return b
}

// SetInsecure sets whether to skip TLS certificate verification. This is optional and defaults to false.
func (b *ClientSecretProviderBuilder) SetInsecure(value bool) *ClientSecretProviderBuilder {
	b.insecure = value
	return b
}

// SetTimeout sets the maximum time to wait for the exchange to complete. This is optional and the default is thirty
// seconds.
func (b *ClientSecretProviderBuilder) SetTimeout(value time.Duration) *ClientSecretProviderBuilder {
	b.timeout = value
	return b
}

// Build uses the data stored in the builder to build a new client secret provider.
func (b *ClientSecretProviderBuilder) Build() (result auth.Provider, err error) {
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
	if b.config.Domain == "" {
		err = errors.New("domain is mandatory")
		return
	}

	// Create the HTTP client:
	httpClient, err := buildHttpClient(b.logger, b.caPool, b.insecure, b.timeout)
	if err != nil {
		return
	}

	// Create and populate the object:
	result = &clientSecretProvider{
		logger:   b.logger,
		config:   b.config,
		endpoint: fmt.Sprintf("https://%s/oauth/token", b.config.Domain),
		audience: fmt.Sprintf("https://%s/api/v2/", b.config.Domain),
		exchanger: &tokenExchanger{
			logger: b.logger,
			client: httpClient,
		},
	}
	return
}

// Acquire is the implementation of the Provider interface.
func (p *clientSecretProvider) Acquire(ctx context.Context) (result *auth.Token, err error) {
	response, err := p.exchanger.sendTokenForm(ctx, p.endpoint, tokenEndpointRequest{
		GrantType:    "client_credentials",
		ClientId:     p.config.ClientId,
		ClientSecret: p.config.ClientSecret,
		Audience:     p.audience,
	})
	if err != nil {
		return
	}
	result = p.exchanger.tokenFromResponse(response)
	return
}
