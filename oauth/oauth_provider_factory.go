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
	"crypto/x509"
	"errors"
	"log/slog"
	"time"

	"github.com/opencatalog/ingestion-common/auth"
)

// ProviderBuilder contains the logic needed to create the provider that matches a security configuration. It looks
// at the configuration discriminator and delegates to the corresponding provider builder, so the calling code never
// needs to know which backend is active. An unsupported discriminator, or a discriminator whose variant
// configuration is missing, fails here, before any network activity.
type ProviderBuilder struct {
	logger   *slog.Logger
	config   *SecurityConfig
	caPool   *x509.CertPool
	insecure bool
	timeout  time.Duration
}

// NewProvider creates a builder that can then be used to configure and create the provider selected by a security
// configuration.
func NewProvider() *ProviderBuilder {
	return &ProviderBuilder{}
}

// SetLogger sets the logger. This is mandatory.
func (b *ProviderBuilder) SetLogger(value *slog.Logger) *ProviderBuilder {
	b.logger = value
	return b
}

// SetConfig sets the security configuration. This is optional: when the configuration is nil the no-op provider is
// selected, for deployments that omit the security section.
func (b *ProviderBuilder) SetConfig(value *SecurityConfig) *ProviderBuilder {
	b.config = value
	return b
}

// SetCaPool sets the certificate pool that contains the certificates of the certificate authorities that are trusted
// when connecting using TLS. This is optional, and the default is to trust the certificate authorities trusted by
// the operating system.
func (b *ProviderBuilder) SetCaPool(value *x509.CertPool) *ProviderBuilder {
	b.caPool = value
	return b
}

// SetInsecure sets whether to skip TLS certificate verification. This is optional and defaults to false.
func (b *ProviderBuilder) SetInsecure(value bool) *ProviderBuilder {
	b.insecure = value
	return b
}

// SetTimeout sets the maximum time to wait for each token exchange to complete. This is optional and the default is
// thirty seconds.
func (b *ProviderBuilder) SetTimeout(value time.Duration) *ProviderBuilder {
	b.timeout = value
	return b
}

// Build uses the data stored in the builder to build the provider that matches the configuration.
func (b *ProviderBuilder) Build() (result auth.Provider, err error) {
	// Check parameters:
	if b.logger == nil {
		err = errors.New("logger is mandatory")
		return
	}

	// Select the backend:
	if b.config == nil {
		result, err = auth.NewNoopProvider().
			SetLogger(b.logger).
			Build()
		return
	}
	switch b.config.Type {
	case ProviderTypeNone:
		result, err = auth.NewNoopProvider().
			SetLogger(b.logger).
			Build()
	case ProviderTypeServiceAccount:
		if b.config.ServiceAccount == nil {
			err = auth.NewConfigurationError("service account configuration is missing")
			return
		}
		result, err = NewServiceAccountProvider().
			SetLogger(b.logger).
			SetConfig(b.config.ServiceAccount).
			SetCaPool(b.caPool).
			SetInsecure(b.insecure).
			SetTimeout(b.timeout).
			Build()
	case ProviderTypeEnterpriseIdp:
		if b.config.EnterpriseIdp == nil {
			err = auth.NewConfigurationError("enterprise identity provider configuration is missing")
			return
		}
		result, err = NewAssertionProvider().
			SetLogger(b.logger).
			SetConfig(b.config.EnterpriseIdp).
			SetCaPool(b.caPool).
			SetInsecure(b.insecure).
			SetTimeout(b.timeout).
			Build()
	case ProviderTypeGenericSecret:
		if b.config.GenericSecret == nil {
			err = auth.NewConfigurationError("generic client secret configuration is missing")
			return
		}
		result, err = NewClientSecretProvider().
			SetLogger(b.logger).
			SetConfig(b.config.GenericSecret).
			SetCaPool(b.caPool).
			SetInsecure(b.insecure).
			SetTimeout(b.timeout).
			Build()
	case ProviderTypeConfidentialClient:
		if b.config.ConfidentialClient == nil {
			err = auth.NewConfigurationError("confidential client configuration is missing")
			return
		}
		result, err = NewConfidentialProvider().
			SetLogger(b.logger).
			SetConfig(b.config.ConfidentialClient).
			SetCaPool(b.caPool).
			SetInsecure(b.insecure).
			SetTimeout(b.timeout).
			Build()
	case ProviderTypeGenericOidc:
		if b.config.GenericOidc == nil {
			err = auth.NewConfigurationError("generic OpenID Connect configuration is missing")
			return
		}
		result, err = NewOidcProvider().
			SetLogger(b.logger).
			SetConfig(b.config.GenericOidc).
			SetCaPool(b.caPool).
			SetInsecure(b.insecure).
			SetTimeout(b.timeout).
			Build()
	default:
		err = auth.NewConfigurationError(
			"unsupported security configuration type '%s', should be '%s', '%s', '%s', '%s', '%s' or '%s'",
			b.config.Type, ProviderTypeNone, ProviderTypeServiceAccount, ProviderTypeEnterpriseIdp,
			ProviderTypeGenericSecret, ProviderTypeConfidentialClient, ProviderTypeGenericOidc,
		)
	}
	return
}
