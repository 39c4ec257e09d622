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
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/opencatalog/ingestion-common/auth"
)

// ConfidentialProviderBuilder contains the logic needed to create a provider that performs the OAuth client
// credentials grant through a confidential client application built from the client identifier, the client secret
// and the issuing authority.
type ConfidentialProviderBuilder struct {
	logger   *slog.Logger
	config   *ConfidentialClientConfig
	caPool   *x509.CertPool
	insecure bool
	timeout  time.Duration
}

type confidentialProvider struct {
	logger      *slog.Logger
	config      *ConfidentialClientConfig
	application *clientcredentials.Config
	httpClient  *http.Client
}

// NewConfidentialProvider creates a builder that can then be used to configure and create a provider that
// authenticates through a confidential client application.
func NewConfidentialProvider() *ConfidentialProviderBuilder {
	return &ConfidentialProviderBuilder{}
}

// SetLogger sets the logger. This is mandatory.
func (b *ConfidentialProviderBuilder) SetLogger(value *slog.Logger) *ConfidentialProviderBuilder {
	b.logger = value
	return b
}

// SetConfig sets the confidential client configuration. This is mandatory.
func (b *ConfidentialProviderBuilder) SetConfig(value *ConfidentialClientConfig) *ConfidentialProviderBuilder {
	b.config = value
	return b
}

// SetCaPool sets the certificate pool that contains the certificates of the certificate authorities that are trusted
// when connecting using TLS. This is optional, and the default is to trust the certificate authorities trusted by
// the operating system.
func (b *ConfidentialProviderBuilder) SetCaPool(value *x509.CertPool) *ConfidentialProviderBuilder {
	b.caPool = value
	return b
}

// SetInsecure sets whether to skip TLS certificate verification. This is optional and defaults to false.
func (b *ConfidentialProviderBuilder) SetInsecure(value bool) *ConfidentialProviderBuilder {
	b.insecure = value
	return b
}

// SetTimeout sets the maximum time to wait for the exchange to complete. This is optional and the default is thirty
// seconds.
func (b *ConfidentialProviderBuilder) SetTimeout(value time.Duration) *ConfidentialProviderBuilder {
	b.timeout = value
	return b
}

// Build uses the data stored in the builder to build a new confidential client provider.
func (b *ConfidentialProviderBuilder) Build() (result auth.Provider, err error) {
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
	if b.config.Authority == "" {
		err = errors.New("authority is mandatory")
		return
	}

	// Create the HTTP client:
	httpClient, err := buildHttpClient(b.logger, b.caPool, b.insecure, b.timeout)
	if err != nil {
		return
	}

	// Build the confidential client application:
	application := &clientcredentials.Config{
		ClientID:     b.config.ClientId,
		ClientSecret: b.config.ClientSecret,
		TokenURL:     fmt.Sprintf("%s/oauth2/v2.0/token", strings.TrimSuffix(b.config.Authority, "/")),
		Scopes:       b.config.Scopes,
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	// Create and populate the object:
	result = &confidentialProvider{
		logger:      b.logger,
		config:      b.config,
		application: application,
		httpClient:  httpClient,
	}
	return
}

// Acquire is the implementation of the Provider interface. It requests a token for the configured scopes from the
// confidential client application. A response that doesn't contain a usable token and expiry means the credentials
// are bad, which is a configuration error, not something to retry.
func (p *confidentialProvider) Acquire(ctx context.Context) (result *auth.Token, err error) {
	// Run the exchange through our own HTTP client so that the TLS settings and the timeout apply:
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := p.application.Token(ctx)
	if err != nil {
		err = p.mapError(ctx, err)
		return
	}
	if token.AccessToken == "" || token.Expiry.IsZero() {
		err = auth.NewConfigurationError(
			"token endpoint '%s' returned a response without a token or expiry, "+
				"the client credentials are probably invalid",
			p.application.TokenURL,
		)
		return
	}
	p.logger.DebugContext(
		ctx,
		"Obtained confidential client token",
		slog.String("!access", token.AccessToken),
		slog.Time("expiry", token.Expiry),
	)
	result = &auth.Token{
		Access: token.AccessToken,
		Expiry: token.Expiry,
	}
	return
}

func (p *confidentialProvider) mapError(ctx context.Context, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		p.logger.ErrorContext(
			ctx,
			"Token endpoint rejected the client credentials",
			slog.Int("status", status),
			slog.String("body", string(retrieveErr.Body)),
		)
		return auth.NewUpstreamError(status, string(retrieveErr.Body),
			"token endpoint '%s' rejected the client credentials", p.application.TokenURL)
	}
	return auth.NewTransportError(err, "failed to reach token endpoint '%s'", p.application.TokenURL)
}
