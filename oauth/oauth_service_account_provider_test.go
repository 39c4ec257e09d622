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

var _ = Describe("Service account provider", func() {
	var (
		ctx    context.Context
		server *Server
		caPool *x509.CertPool
		config *ServiceAccountConfig
	)

	BeforeEach(func() {
		var err error

		// Create the context:
		ctx = context.Background()

		// Create the TLS server that simulates the token endpoint:
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

		// Create the service account key file pointing at the server:
		keyFile := testing.MakeServiceAccountKeyFile(fmt.Sprintf("%s/token", server.URL()))
		DeferCleanup(func() {
			err := os.Remove(keyFile)
			Expect(err).ToNot(HaveOccurred())
		})

		// Create the configuration:
		config = &ServiceAccountConfig{
			KeyFile:  keyFile,
			Audience: "https://catalog.example.com",
		}
	})

	Describe("Creation", func() {
		It("Can be created with all the mandatory parameters", func() {
			provider, err := NewServiceAccountProvider().
				SetLogger(logger).
				SetConfig(config).
				SetCaPool(caPool).
				Build()
			Expect(err).ToNot(HaveOccurred())
			Expect(provider).ToNot(BeNil())
		})

		It("Can't be created without a logger", func() {
			provider, err := NewServiceAccountProvider().
				SetConfig(config).
				SetCaPool(caPool).
				Build()
			Expect(err).To(MatchError("logger is mandatory"))
			Expect(provider).To(BeNil())
		})

		It("Can't be created without a configuration", func() {
			provider, err := NewServiceAccountProvider().
				SetLogger(logger).
				SetCaPool(caPool).
				Build()
			Expect(err).To(MatchError("configuration is mandatory"))
			Expect(provider).To(BeNil())
		})

		It("Can't be created without a key file", func() {
			config.KeyFile = ""
			provider, err := NewServiceAccountProvider().
				SetLogger(logger).
				SetConfig(config).
				SetCaPool(caPool).
				Build()
			Expect(err).To(MatchError("key file is mandatory"))
			Expect(provider).To(BeNil())
		})

		It("Can't be created without an audience", func() {
			config.Audience = ""
			provider, err := NewServiceAccountProvider().
				SetLogger(logger).
				SetConfig(config).
				SetCaPool(caPool).
				Build()
			Expect(err).To(MatchError("audience is mandatory"))
			Expect(provider).To(BeNil())
		})
	})

	Describe("Behaviour", func() {
		It("Exchanges a signed assertion carrying the target audience", func() {
			// Prepare the server, capturing the assertion:
			var assertion string
			server.AppendHandlers(
				CombineHandlers(
					VerifyRequest(http.MethodPost, "/token"),
					VerifyFormKV("grant_type", "urn:ietf:params:oauth:grant-type:jwt-bearer"),
					func(_ http.ResponseWriter, r *http.Request) {
						err := r.ParseForm()
						Expect(err).ToNot(HaveOccurred())
						assertion = r.PostForm.Get("assertion")
					},
					RespondWithJSONEncoded(
						http.StatusOK,
						map[string]any{
							"access_token": "abc",
							"token_type":   "Bearer",
							"expires_in":   3600,
						},
					),
				),
			)

			// Create the provider:
			provider, err := NewServiceAccountProvider().
				SetLogger(logger).
				SetConfig(config).
				SetCaPool(caPool).
				Build()
			Expect(err).ToNot(HaveOccurred())

			// Acquire the token:
			token, err := provider.Acquire(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(token.Access).To(Equal("abc"))
			Expect(token.Expiry).To(BeTemporally("~", time.Now().Add(3600*time.Second), 10*time.Second))

			// Verify that the assertion carries the target audience. The signature is made with a throwaway
			// key, so the claims are decoded without verifying it:
			Expect(assertion).ToNot(BeEmpty())
			claims := jwt.MapClaims{}
			_, _, err = jwt.NewParser().ParseUnverified(assertion, claims)
			Expect(err).ToNot(HaveOccurred())
			Expect(claims).To(HaveKeyWithValue("target_audience", "https://catalog.example.com"))
			Expect(claims).To(HaveKeyWithValue("iss", "my-service-account@my-project.iam.example.com"))
		})

		It("Fails with a configuration error before touching the network when the key file doesn't exist", func() {
			config.KeyFile = "/does/not/exist.json"
			provider, err := NewServiceAccountProvider().
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

		It("Fails with a configuration error when the key file isn't a valid service account key", func() {
			bogus, err := os.CreateTemp("", "*.test.json")
			Expect(err).ToNot(HaveOccurred())
			_, err = bogus.WriteString("{}")
			Expect(err).ToNot(HaveOccurred())
			err = bogus.Close()
			Expect(err).ToNot(HaveOccurred())
			DeferCleanup(func() {
				err := os.Remove(bogus.Name())
				Expect(err).ToNot(HaveOccurred())
			})
			config.KeyFile = bogus.Name()
			provider, err := NewServiceAccountProvider().
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

		It("Picks up a rotated key file on the next acquisition", func() {
			// Prepare the server to accept two exchanges:
			respond := CombineHandlers(
				VerifyRequest(http.MethodPost, "/token"),
				RespondWithJSONEncoded(
					http.StatusOK,
					map[string]any{
						"access_token": "abc",
						"token_type":   "Bearer",
						"expires_in":   3600,
					},
				),
			)
			server.AppendHandlers(respond, respond)

			// Create the provider:
			provider, err := NewServiceAccountProvider().
				SetLogger(logger).
				SetConfig(config).
				SetCaPool(caPool).
				Build()
			Expect(err).ToNot(HaveOccurred())

			// First acquisition uses the original key file:
			_, err = provider.Acquire(ctx)
			Expect(err).ToNot(HaveOccurred())

			// Replace the key file with a fresh key, the next acquisition should still succeed:
			rotated := testing.MakeServiceAccountKeyFile(fmt.Sprintf("%s/token", server.URL()))
			DeferCleanup(func() {
				err := os.Remove(rotated)
				Expect(err).ToNot(HaveOccurred())
			})
			data, err := os.ReadFile(rotated)
			Expect(err).ToNot(HaveOccurred())
			err = os.WriteFile(config.KeyFile, data, 0600)
			Expect(err).ToNot(HaveOccurred())
			_, err = provider.Acquire(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(server.ReceivedRequests()).To(HaveLen(2))
		})

		It("Carries the upstream status and body when the endpoint rejects the assertion", func() {
			server.AppendHandlers(
				CombineHandlers(
					VerifyRequest(http.MethodPost, "/token"),
					RespondWithJSONEncoded(
						http.StatusBadRequest,
						map[string]any{
							"error": "invalid_grant",
						},
					),
				),
			)
			provider, err := NewServiceAccountProvider().
				SetLogger(logger).
				SetConfig(config).
				SetCaPool(caPool).
				Build()
			Expect(err).ToNot(HaveOccurred())
			token, err := provider.Acquire(ctx)
			Expect(err).To(HaveOccurred())
			Expect(token).To(BeNil())
			Expect(auth.IsKind(err, auth.ErrorKindUpstream)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("invalid_grant"))
		})
	})
})
