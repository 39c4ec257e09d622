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
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/opencatalog/ingestion-common/auth"
)

// assertionLifetime is the lifetime of the self issued assertion presented to the identity provider.
const assertionLifetime = time.Hour

// AssertionProviderBuilder contains the logic needed to create a provider that performs the JWT bearer client
// credentials flow used by enterprise identity providers, as defined in RFC 7523: a short lived assertion is signed
// with the configured private key and presented to the organization's token endpoint in exchange for an access
// token.
type AssertionProviderBuilder struct {
	logger   *slog.Logger
	config   *EnterpriseIdpConfig
	caPool   *x509.CertPool
	insecure bool
	timeout  time.Duration
}

type assertionProvider struct {
	logger    *slog.Logger
	config    *EnterpriseIdpConfig
	endpoint  string
	exchanger *tokenExchanger
}

// NewAssertionProvider creates a builder that can then be used to configure and create a provider that authenticates
// with a signed JWT assertion.
func NewAssertionProvider() *AssertionProviderBuilder {
	return &AssertionProviderBuilder{}
}

// SetLogger sets the logger. This is mandatory.
func (b *AssertionProviderBuilder) SetLogger(value *slog.Logger) *AssertionProviderBuilder {
	b.logger = value
	return b
}

// SetConfig sets the enterprise identity provider configuration. This is mandatory.
func (b *AssertionProviderBuilder) SetConfig(value *EnterpriseIdpConfig) *AssertionProviderBuilder {
	b.config = value
	return b
}

// SetCaPool sets the certificate pool that contains the certificates of the certificate authorities that are trusted
// when connecting using TLS. This is optional, and the default is to trust the certificate authorities trusted by
// the operating system.
func (b *AssertionProviderBuilder) SetCaPool(value *x509.CertPool) *AssertionProviderBuilder {
	b.caPool = value
	return b
}

// SetInsecure sets whether to skip TLS certificate verification. This is optional and defaults to false.
func (b *AssertionProviderBuilder) SetInsecure(value bool) *AssertionProviderBuilder {
	b.insecure = value
	return b
}

// SetTimeout sets the maximum time to wait for the exchange to complete. This is optional and the default is thirty
// seconds.
func (b *AssertionProviderBuilder) SetTimeout(value time.Duration) *AssertionProviderBuilder {
	b.timeout = value
	return b
}

// Build uses the data stored in the builder to build a new assertion provider.
func (b *AssertionProviderBuilder) Build() (result auth.Provider, err error) {
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
	if b.config.PrivateKeyFile == "" {
		err = errors.New("private key file is mandatory")
		return
	}
	if b.config.OrgUrl == "" {
		err = errors.New("organization URL is mandatory")
		return
	}

	// The assertion is presented to the organization URL unless an explicit token endpoint is configured:
	endpoint := b.config.TokenEndpoint
	if endpoint == "" {
		endpoint = b.config.OrgUrl
	}

	// Create the HTTP client:
	httpClient, err := buildHttpClient(b.logger, b.caPool, b.insecure, b.timeout)
	if err != nil {
		return
	}

	// Create and populate the object:
	result = &assertionProvider{
		logger:   b.logger,
		config:   b.config,
		endpoint: endpoint,
		exchanger: &tokenExchanger{
			logger: b.logger,
			client: httpClient,
		},
	}
	return
}

// Acquire is the implementation of the Provider interface. It signs a fresh assertion and exchanges it for an access
// token. The exchange is a single bounded network round trip: cancelling the context aborts the underlying request.
func (p *assertionProvider) Acquire(ctx context.Context) (result *auth.Token, err error) {
	assertion, err := p.signAssertion()
	if err != nil {
		return
	}
	response, err := p.exchanger.sendTokenForm(ctx, p.endpoint, tokenEndpointRequest{
		GrantType:           "client_credentials",
		Scope:               p.config.Scopes,
		ClientAssertionType: clientAssertionType,
		ClientAssertion:     assertion,
	})
	if err != nil {
		return
	}
	result = p.exchanger.tokenFromResponse(response)
	return
}

// signAssertion loads the private key and signs the self issued claims. All the state is call local, so concurrent
// acquisitions each get their own fresh assertion identifier.
func (p *assertionProvider) signAssertion() (result string, err error) {
	keyData, err := os.ReadFile(p.config.PrivateKeyFile)
	if err != nil {
		err = auth.NewConfigurationError("failed to read private key file '%s': %v",
			p.config.PrivateKeyFile, err)
		return
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(keyData)
	if err != nil {
		err = auth.NewConfigurationError("failed to parse private key from file '%s': %v",
			p.config.PrivateKeyFile, err)
		return
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   p.config.ClientId,
		Issuer:    p.config.ClientId,
		Audience:  jwt.ClaimStrings{p.config.OrgUrl},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(assertionLifetime)),
		ID:        uuid.NewString(),
	}
	result, err = jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		err = auth.NewConfigurationError("failed to sign assertion: %v", err)
		return
	}
	return
}
