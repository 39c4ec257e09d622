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
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2/dsl/core"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/ghttp"

	"github.com/opencatalog/ingestion-common/auth"
	"github.com/opencatalog/ingestion-common/network"
	"github.com/opencatalog/ingestion-common/testing"
)

var _ = Describe("Assertion provider", func() {
	var (
		ctx       context.Context
		server    *Server
		caPool    *x509.CertPool
		keyFile   string
		publicKey *rsa.PublicKey
		config    *EnterpriseIdpConfig
	)

	BeforeEach(func() {
		var err error

		// Create the context:
		ctx = context.Background()

		// Create the TLS server that simulates the identity provider:
		var caFile string
		server, caFile = testing.MakeTCPTLSServer()
		DeferCleanup(server.Close)
		DeferCleanup(func() {
			err := os.Remove(caFile)
			Expect(err).ToNot(HaveOccurred())
		})

		// Create the CA pool with the server's certificate:
		caPool, err = network.NewCertPool().
			SetLogger(logger).
			AddFile(caFile).
			Build()
		Expect(err).ToNot(HaveOccurred())

		// Create the private key used to sign the assertions:
		keyFile, publicKey = testing.MakeRSAKeyFile()
		DeferCleanup(func() {
			err := os.Remove(keyFile)
			Expect(err).ToNot(HaveOccurred())
		})

		// Create the configuration:
		config = &EnterpriseIdpConfig{
			ClientId:       "my_client",
			PrivateKeyFile: keyFile,
			OrgUrl:         server.URL(),
		}
	})

	// parseAssertion verifies the signature of the given assertion with the test public key and returns the
	// registered claims it carries.
	parseAssertion := func(assertion string) *jwt.RegisteredClaims {
		claims := &jwt.RegisteredClaims{}
		parsed, err := jwt.ParseWithClaims(assertion, claims, func(_ *jwt.Token) (any, error) {
			return publicKey, nil
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(parsed.Valid).To(BeTrue())
		return claims
	}

	Describe("Creation", func() {
		It("Can be created with all the mandatory parameters", func() {
			provider, err := NewAssertionProvider().
				SetLogger(logger).
				SetConfig(config).
				SetCaPool(caPool).
				Build()
			Expect(err).ToNot(HaveOccurred())
			Expect(provider).ToNot(BeNil())
		})

		It("Can't be created without a logger", func() {
			provider, err := NewAssertionProvider().
				SetConfig(config).
				SetCaPool(caPool).
				Build()
			Expect(err).To(MatchError("logger is mandatory"))
			Expect(provider).To(BeNil())
		})

		It("Can't be created without a configuration", func() {
			provider, err := NewAssertionProvider().
				SetLogger(logger).
				SetCaPool(caPool).
				Build()
			Expect(err).To(MatchError("configuration is mandatory"))
			Expect(provider).To(BeNil())
		})

		It("Can't be created without a client identifier", func() {
			config.ClientId = ""
			provider, err := NewAssertionProvider().
				SetLogger(logger).
				SetConfig(config).
				SetCaPool(caPool).
				Build()
			Expect(err).To(MatchError("client identifier is mandatory"))
			Expect(provider).To(BeNil())
		})

		It("Can't be created without a private key file", func() {
			config.PrivateKeyFile = ""
			provider, err := NewAssertionProvider().
				SetLogger(logger).
				SetConfig(config).
				SetCaPool(caPool).
				Build()
			Expect(err).To(MatchError("private key file is mandatory"))
			Expect(provider).To(BeNil())
		})

		It("Can't be created without an organization URL", func() {
			config.OrgUrl = ""
			provider, err := NewAssertionProvider().
				SetLogger(logger).
				SetConfig(config).
				SetCaPool(caPool).
				Build()
			Expect(err).To(MatchError("organization URL is mandatory"))
			Expect(provider).To(BeNil())
		})
	})

	Describe("Behaviour", func() {
		It("Sends a signed assertion with the expected claims", func() {
			// Prepare the server, capturing the assertion:
			var assertion string
			server.AppendHandlers(
				CombineHandlers(
					VerifyRequest(http.MethodPost, "/"),
					VerifyContentType("application/x-www-form-urlencoded"),
					VerifyFormKV("grant_type", "client_credentials"),
					VerifyFormKV(
						"client_assertion_type",
						"urn:ietf:params:oauth:client-assertion-type:jwt-bearer",
					),
					func(_ http.ResponseWriter, r *http.Request) {
						err := r.ParseForm()
						Expect(err).ToNot(HaveOccurred())
						assertion = r.PostForm.Get("client_assertion")
					},
					RespondWithJSONEncoded(
						http.StatusOK,
						map[string]any{
							"access_token": "abc",
							"expires_in":   3600,
						},
					),
				),
			)

			// Create the provider:
			provider, err := NewAssertionProvider().
				SetLogger(logger).
				SetConfig(config).
				SetCaPool(caPool).
				Build()
			Expect(err).ToNot(HaveOccurred())

			// Acquire the token:
			token, err := provider.Acquire(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(token.Access).To(Equal("abc"))
			Expect(token.Expiry).To(BeTemporally("~", time.Now().Add(3600*time.Second), time.Second))

			// Verify the assertion claims:
			Expect(assertion).ToNot(BeEmpty())
			claims := parseAssertion(assertion)
			Expect(claims.Subject).To(Equal("my_client"))
			Expect(claims.Issuer).To(Equal("my_client"))
			Expect(claims.Audience).To(ConsistOf(server.URL()))
			Expect(claims.ID).ToNot(BeEmpty())
			Expect(claims.ExpiresAt.Sub(claims.IssuedAt.Time)).To(Equal(time.Hour))
		})

		It("Signs a fresh assertion with a different identifier for each acquisition", func() {
			// Prepare the server, capturing the assertions:
			var assertions []string
			capture := func(_ http.ResponseWriter, r *http.Request) {
				err := r.ParseForm()
				Expect(err).ToNot(HaveOccurred())
				assertions = append(assertions, r.PostForm.Get("client_assertion"))
			}
			respond := RespondWithJSONEncoded(
				http.StatusOK,
				map[string]any{
					"access_token": "abc",
					"expires_in":   3600,
				},
			)
			server.AppendHandlers(
				CombineHandlers(capture, respond),
				CombineHandlers(capture, respond),
			)

			// Create the provider:
			provider, err := NewAssertionProvider().
				SetLogger(logger).
				SetConfig(config).
				SetCaPool(caPool).
				Build()
			Expect(err).ToNot(HaveOccurred())

			// Acquire the token twice:
			_, err = provider.Acquire(ctx)
			Expect(err).ToNot(HaveOccurred())
			_, err = provider.Acquire(ctx)
			Expect(err).ToNot(HaveOccurred())

			// Verify that the assertion identifiers differ:
			Expect(assertions).To(HaveLen(2))
			first := parseAssertion(assertions[0])
			second := parseAssertion(assertions[1])
			Expect(first.ID).ToNot(Equal(second.ID))
		})

		It("Sends the assertion to the explicit token endpoint when one is configured", func() {
			config.TokenEndpoint = fmt.Sprintf("%s/oauth2/v1/token", server.URL())
			server.AppendHandlers(
				CombineHandlers(
					VerifyRequest(http.MethodPost, "/oauth2/v1/token"),
					RespondWithJSONEncoded(
						http.StatusOK,
						map[string]any{
							"access_token": "abc",
							"expires_in":   3600,
						},
					),
				),
			)
			provider, err := NewAssertionProvider().
				SetLogger(logger).
				SetConfig(config).
				SetCaPool(caPool).
				Build()
			Expect(err).ToNot(HaveOccurred())
			token, err := provider.Acquire(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(token.Access).To(Equal("abc"))
		})

		It("Sends the configured scopes", func() {
			config.Scopes = []string{"read", "write"}
			server.AppendHandlers(
				CombineHandlers(
					VerifyRequest(http.MethodPost, "/"),
					VerifyFormKV("scope", "read write"),
					RespondWithJSONEncoded(
						http.StatusOK,
						map[string]any{
							"access_token": "abc",
							"expires_in":   3600,
						},
					),
				),
			)
			provider, err := NewAssertionProvider().
				SetLogger(logger).
				SetConfig(config).
				SetCaPool(caPool).
				Build()
			Expect(err).ToNot(HaveOccurred())
			_, err = provider.Acquire(ctx)
			Expect(err).ToNot(HaveOccurred())
		})

		It("Fails with a configuration error before touching the network when the key file doesn't exist", func() {
			config.PrivateKeyFile = "/does/not/exist.pem"
			provider, err := NewAssertionProvider().
				SetLogger(logger).
				SetConfig(config).
				SetCaPool(caPool).
				Build()
			Expect(err).ToNot(HaveOccurred())
			token, err := provider.Acquire(ctx)
			Expect(err).To(HaveOccurred())
			Expect(token).To(BeNil())
			Expect(auth.IsKind(err, auth.ErrorKindConfiguration)).To(BeTrue())
			Expect(server.ReceivedRequests()).To(BeEmpty())
		})

		It("Fails with a configuration error when the key file isn't a valid PEM key", func() {
			bogus, err := os.CreateTemp("", "*.pem")
			Expect(err).ToNot(HaveOccurred())
			_, err = bogus.WriteString("junk")
			Expect(err).ToNot(HaveOccurred())
			err = bogus.Close()
			Expect(err).ToNot(HaveOccurred())
			DeferCleanup(func() {
				err := os.Remove(bogus.Name())
				Expect(err).ToNot(HaveOccurred())
			})
			config.PrivateKeyFile = bogus.Name()
			provider, err := NewAssertionProvider().
				SetLogger(logger).
				SetConfig(config).
				SetCaPool(caPool).
				Build()
			Expect(err).ToNot(HaveOccurred())
			token, err := provider.Acquire(ctx)
			Expect(err).To(HaveOccurred())
			Expect(token).To(BeNil())
			Expect(auth.IsKind(err, auth.ErrorKindConfiguration)).To(BeTrue())
			Expect(server.ReceivedRequests()).To(BeEmpty())
		})

		It("Carries the upstream status and body when the identity provider rejects the assertion", func() {
			server.AppendHandlers(
				CombineHandlers(
					VerifyRequest(http.MethodPost, "/"),
					RespondWithJSONEncoded(
						http.StatusUnauthorized,
						map[string]any{
							"error": "invalid_client",
						},
					),
				),
			)
			provider, err := NewAssertionProvider().
				SetLogger(logger).
				SetConfig(config).
				SetCaPool(caPool).
				Build()
			Expect(err).ToNot(HaveOccurred())
			token, err := provider.Acquire(ctx)
			Expect(err).To(HaveOccurred())
			Expect(token).To(BeNil())
			Expect(auth.IsKind(err, auth.ErrorKindUpstream)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("invalid_client"))
		})
	})
})
