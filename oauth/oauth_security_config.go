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

// ProviderType is the discriminator that selects which authentication backend is active.
type ProviderType string

const (
	// ProviderTypeNone selects the no-op provider, for deployments that don't require authentication.
	ProviderTypeNone ProviderType = "none"

	// ProviderTypeServiceAccount selects the provider that signs a short lived assertion with a service account
	// key and exchanges it for an access token.
	ProviderTypeServiceAccount ProviderType = "service-account"

	// ProviderTypeEnterpriseIdp selects the provider that performs the JWT bearer client credentials flow used by
	// enterprise identity providers.
	ProviderTypeEnterpriseIdp ProviderType = "enterprise-idp"

	// ProviderTypeGenericSecret selects the provider that performs a client secret exchange against a fixed path
	// under a configured domain.
	ProviderTypeGenericSecret ProviderType = "generic-secret"

	// ProviderTypeConfidentialClient selects the provider that performs the client credentials grant through a
	// confidential client application.
	ProviderTypeConfidentialClient ProviderType = "confidential-client"

	// ProviderTypeGenericOidc selects the provider that performs a plain OpenID Connect client credentials
	// exchange against an arbitrary token endpoint.
	ProviderTypeGenericOidc ProviderType = "generic-oidc"
)

// SecurityConfig selects and configures the authentication backend. Exactly one of the variant fields should be
// populated, the one matching the type. The configuration is owned by the top level server configuration and is
// immutable once loaded; providers hold a reference to it and never modify it.
type SecurityConfig struct {
	// Type is the discriminator that selects the backend.
	Type ProviderType

	// ServiceAccount is the configuration for the service account backend.
	ServiceAccount *ServiceAccountConfig

	// EnterpriseIdp is the configuration for the enterprise identity provider backend.
	EnterpriseIdp *EnterpriseIdpConfig

	// GenericSecret is the configuration for the generic client secret backend.
	GenericSecret *GenericSecretConfig

	// ConfidentialClient is the configuration for the confidential client application backend.
	ConfidentialClient *ConfidentialClientConfig

	// GenericOidc is the configuration for the generic OpenID Connect backend.
	GenericOidc *GenericOidcConfig
}

// ServiceAccountConfig contains the details needed to authenticate with a service account key.
type ServiceAccountConfig struct {
	// KeyFile is the path of the JSON file that contains the service account key.
	KeyFile string

	// Audience is the audience that the issued token will be constrained to.
	Audience string
}

// EnterpriseIdpConfig contains the details needed to authenticate with an enterprise identity provider using a
// signed JWT assertion.
type EnterpriseIdpConfig struct {
	// ClientId is the client identifier, used as both the subject and the issuer of the assertion.
	ClientId string

	// PrivateKeyFile is the path of the PEM file that contains the private key used to sign the assertion.
	PrivateKeyFile string

	// OrgUrl is the URL of the issuing organization. It is used as the audience of the assertion, and as the
	// token endpoint unless TokenEndpoint is set.
	OrgUrl string

	// TokenEndpoint is the URL of the token endpoint. This is optional and the default is the organization URL.
	TokenEndpoint string

	// Scopes is the list of scopes to request.
	Scopes []string
}

// GenericSecretConfig contains the details needed to authenticate with a client secret against a fixed path under
// the configured domain.
type GenericSecretConfig struct {
	// ClientId is the client identifier.
	ClientId string

	// ClientSecret is the client secret.
	ClientSecret string

	// Domain is the domain of the identity provider. The exchange is sent to 'https://{domain}/oauth/token' and
	// the requested audience is 'https://{domain}/api/v2/'.
	Domain string
}

// ConfidentialClientConfig contains the details needed to authenticate through a confidential client application.
type ConfidentialClientConfig struct {
	// ClientId is the client identifier.
	ClientId string

	// ClientSecret is the client secret.
	ClientSecret string

	// Authority is the URL of the issuing authority, for example 'https://login.example.com/my-tenant'. The
	// exchange is sent to '{authority}/oauth2/v2.0/token'.
	Authority string

	// Scopes is the list of scopes to request.
	Scopes []string
}

// GenericOidcConfig contains the details needed to authenticate against an arbitrary OpenID Connect token endpoint.
type GenericOidcConfig struct {
	// ClientId is the client identifier.
	ClientId string

	// ClientSecret is the client secret.
	ClientSecret string

	// TokenEndpoint is the URL of the token endpoint.
	TokenEndpoint string
}
