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
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/opencatalog/ingestion-common/auth"
)

// ServiceAccountProviderBuilder contains the logic needed to create a provider that signs a short lived assertion
// with a service account private key and exchanges it, constrained to the configured target audience, at the token
// endpoint referenced by the key file.
type ServiceAccountProviderBuilder struct {
	logger   *slog.Logger
	config   *ServiceAccountConfig
	caPool   *x509.CertPool
	insecure bool
	timeout  time.Duration
}

type serviceAccountProvider struct {
	logger     *slog.Logger
	config     *ServiceAccountConfig
	httpClient *http.Client
}

// NewServiceAccountProvider creates a builder that can then be used to configure and create a provider that
// authenticates with a service account key.
func NewServiceAccountProvider() *ServiceAccountProviderBuilder {
	return &ServiceAccountProviderBuilder{}
}

// SetLogger sets the logger. This is mandatory.
func (b *ServiceAccountProviderBuilder) SetLogger(value *slog.Logger) *ServiceAccountProviderBuilder {
	b.logger = value
	return b
}

// SetConfig sets the service account configuration. This is mandatory.
func (b *ServiceAccountProviderBuilder) SetConfig(value *ServiceAccountConfig) *ServiceAccountProviderBuilder {
	b.config = value
	return b
}

// SetCaPool sets the certificate pool that contains the certificates of the certificate authorities that are trusted
// when connecting using TLS. This is optional, and the default is to trust the certificate authorities trusted by
// the operating system.
func (b *ServiceAccountProviderBuilder) SetCaPool(value *x509.CertPool) *ServiceAccountProviderBuilder {
	b.caPool = value
	return b
}

// SetInsecure sets whether to skip TLS certificate verification. This is optional and defaults to false.
func (b *ServiceAccountProviderBuilder) SetInsecure(value bool) *ServiceAccountProviderBuilder {
	b.insecure = value
	return b
}

// SetTimeout sets the maximum time to wait for the exchange to complete. This is optional and the default is thirty
// seconds.
func (b *ServiceAccountProviderBuilder) SetTimeout(value time.Duration) *ServiceAccountProviderBuilder {
	b.timeout = value
	return b
}

// Build uses the data stored in the builder to build a new service account provider.
func (b *ServiceAccountProviderBuilder) Build() (result auth.Provider, err error) {
	// Check parameters:
	if b.logger == nil {
		err = errors.New("logger is mandatory")
		return
	}
	if b.config == nil {
		err = errors.New("configuration is mandatory")
		return
	}
	if b.config.KeyFile == "" {
		err = errors.New("key file is mandatory")
		return
	}
	if b.config.Audience == "" {
		err = errors.New("audience is mandatory")
		return
	}

	// Create the HTTP client:
	httpClient, err := buildHttpClient(b.logger, b.caPool, b.insecure, b.timeout)
	if err != nil {
		return
	}

	// Create and populate the object:
	result = &serviceAccountProvider{
		logger:     b.logger,
		config:     b.config,
		httpClient: httpClient,
	}
	return
}

// Acquire is the implementation of the Provider interface. It reads the key material on every call, so a key
// rotation on disk takes effect on the next acquisition, and a missing or malformed key file fails before any
// network activity.
func (p *serviceAccountProvider) Acquire(ctx context.Context) (result *auth.Token, err error) {
	keyData, err := os.ReadFile(p.config.KeyFile)
	if err != nil {
		err = auth.NewConfigurationError("failed to read service account key file '%s': %v",
			p.config.KeyFile, err)
		return
	}
	jwtConfig, err := google.JWTConfigFromJSON(keyData)
	if err != nil {
		err = auth.NewConfigurationError("failed to parse service account key file '%s': %v",
			p.config.KeyFile, err)
		return
	}
	jwtConfig.PrivateClaims = map[string]any{
		"target_audience": p.config.Audience,
	}

	// Run the exchange through our own HTTP client so that the TLS settings and the timeout apply:
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := jwtConfig.TokenSource(ctx).Token()
	if err != nil {
		err = p.mapError(ctx, err)
		return
	}
	if token.AccessToken == "" {
		err = auth.NewUpstreamError(0, "", "token endpoint '%s' returned an empty token",
			jwtConfig.TokenURL)
		return
	}
	if token.Expiry.IsZero() {
		err = auth.NewUpstreamError(0, "", "token endpoint '%s' returned a token without expiry",
			jwtConfig.TokenURL)
		return
	}
	p.logger.DebugContext(
		ctx,
		"Obtained service account token",
		slog.String("!access", token.AccessToken),
		slog.Time("expiry", token.Expiry),
	)
	result = &auth.Token{
		Access: token.AccessToken,
		Expiry: token.Expiry,
	}
	return
}

func (p *serviceAccountProvider) mapError(ctx context.Context, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		p.logger.ErrorContext(
			ctx,
			"Token endpoint rejected the assertion",
			slog.Int("status", status),
			slog.String("body", string(retrieveErr.Body)),
		)
		return auth.NewUpstreamError(status, string(retrieveErr.Body),
			"token endpoint rejected the service account assertion")
	}
	return auth.NewTransportError(err, "failed to exchange the service account assertion")
}
