/*
Copyright (c) 2025 Red Hat Inc.

Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the
License. You may obtain a copy of the License at

  http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
"AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the specific
language governing permissions and limitations under the License.
*/

package network

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/pflag"

	"github.com/opencatalog/ingestion-common/auth"
)

// Suffixes of the command line flag names, without the client name:
const (
	httpClientTimeoutFlagSuffix  = "timeout"
	httpClientInsecureFlagSuffix = "insecure"
	httpClientCaFileFlagSuffix   = "ca-file"
)

// HttpClientBuilder contains the data and logic needed to create the HTTP client that the ingestion client uses to
// call the metadata API. Don't create instances of this object directly, use the NewHttpClient function instead.
type HttpClientBuilder struct {
	logger   *slog.Logger
	insecure bool
	caPool   *x509.CertPool
	caFiles  []string
	provider auth.Provider
	timeout  time.Duration
}

// NewHttpClient creates a builder that can then be used to configure and create an HTTP client.
func NewHttpClient() *HttpClientBuilder {
	return &HttpClientBuilder{}
}

// SetLogger sets the logger that the client will use to send messages to the log. This is mandatory.
func (b *HttpClientBuilder) SetLogger(value *slog.Logger) *HttpClientBuilder {
	b.logger = value
	return b
}

// SetFlags sets the command line flags that should be used to configure the client.
//
// The name is used to select the flags when there are multiple clients. For example, if it is 'api' then only the
// flags starting with '--api' will be taken into account.
//
// This is optional.
func (b *HttpClientBuilder) SetFlags(flags *pflag.FlagSet, name string) *HttpClientBuilder {
	if flags == nil {
		return b
	}

	var (
		flag string
		err  error
	)
	failure := func() {
		b.logger.Error(
			"Failed to get flag value",
			slog.String("flag", flag),
			slog.Any("error", err),
		)
	}

	// Timeout:
	flag = httpClientFlagName(name, httpClientTimeoutFlagSuffix)
	timeoutValue, err := flags.GetDuration(flag)
	if err != nil {
		failure()
	} else {
		b.SetTimeout(timeoutValue)
	}

	// Insecure:
	flag = httpClientFlagName(name, httpClientInsecureFlagSuffix)
	insecureValue, err := flags.GetBool(flag)
	if err != nil {
		failure()
	} else {
		b.SetInsecure(insecureValue)
	}

	// CA files:
	flag = httpClientFlagName(name, httpClientCaFileFlagSuffix)
	caFilesValue, err := flags.GetStringArray(flag)
	if err != nil {
		failure()
	} else {
		b.caFiles = append(b.caFiles, caFilesValue...)
	}

	return b
}

// AddHttpClientFlags adds to the given flag set the flags needed to configure an HTTP client with the SetFlags
// method. The name is used as the prefix of the flag names, see SetFlags.
func AddHttpClientFlags(flags *pflag.FlagSet, name string) {
	flags.Duration(
		httpClientFlagName(name, httpClientTimeoutFlagSuffix),
		time.Minute,
		"Maximum time to wait for each request to complete.",
	)
	flags.Bool(
		httpClientFlagName(name, httpClientInsecureFlagSuffix),
		false,
		"Skip TLS certificate verification.",
	)
	flags.StringArray(
		httpClientFlagName(name, httpClientCaFileFlagSuffix),
		nil,
		"File containing trusted CA certificates. Can be repeated.",
	)
}

// SetInsecure when set to true configures the client to use TLS but to not verify the certificate presented by the
// server. This shouldn't be used in production environments. The default is false.
func (b *HttpClientBuilder) SetInsecure(value bool) *HttpClientBuilder {
	b.insecure = value
	return b
}

// SetCaPool sets the certificate pool that contains the certificates of the certificate authorities that are trusted
// when connecting using TLS. This is optional, and the default is to trust the certificate authorities trusted by
// the operating system.
func (b *HttpClientBuilder) SetCaPool(value *x509.CertPool) *HttpClientBuilder {
	b.caPool = value
	return b
}

// SetProvider sets the authentication provider that will be used to acquire the bearer token attached to each
// outbound request. This is optional, by default no authentication credentials are sent.
func (b *HttpClientBuilder) SetProvider(value auth.Provider) *HttpClientBuilder {
	b.provider = value
	return b
}

// SetTimeout sets the maximum time to wait for each request to complete. This is optional, and the default is one
// minute.
func (b *HttpClientBuilder) SetTimeout(value time.Duration) *HttpClientBuilder {
	b.timeout = value
	return b
}

// Build uses the data stored in the builder to create a new HTTP client.
func (b *HttpClientBuilder) Build() (result *http.Client, err error) {
	// Check parameters:
	if b.logger == nil {
		err = errors.New("logger is mandatory")
		return
	}
	if b.timeout < 0 {
		err = fmt.Errorf("timeout should be positive, but it is %s", b.timeout)
		return
	}

	// Set the default timeout:
	timeout := b.timeout
	if timeout == 0 {
		timeout = time.Minute
	}

	// Set the default CA pool:
	caPool := b.caPool
	if caPool == nil {
		caPool, err = NewCertPool().
			SetLogger(b.logger).
			AddSystemFiles(true).
			AddKubernetesFiles(true).
			AddFiles(b.caFiles...).
			Build()
		if err != nil {
			err = fmt.Errorf("failed to build CA pool: %w", err)
			return
		}
	}

	// Create the transport:
	tlsConfig := &tls.Config{
		RootCAs:            caPool,
		InsecureSkipVerify: b.insecure,
	}
	var transport http.RoundTripper = &http.Transport{
		TLSClientConfig: tlsConfig,
	}
	if b.provider != nil {
		transport = &bearerTransport{
			logger:    b.logger,
			provider:  b.provider,
			transport: transport,
		}
	}

	// Create and populate the object:
	result = &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
	return
}

// bearerTransport asks the active provider for a token before each outbound call and attaches it as a bearer
// authorization header.
type bearerTransport struct {
	logger    *slog.Logger
	provider  auth.Provider
	transport http.RoundTripper
}

func (t *bearerTransport) RoundTrip(request *http.Request) (result *http.Response, err error) {
	token, err := t.provider.Acquire(request.Context())
	if err != nil {
		err = fmt.Errorf("failed to acquire token: %w", err)
		return
	}
	t.logger.DebugContext(
		request.Context(),
		"Attaching bearer token",
		slog.String("!access", token.Access),
		slog.Time("expiry", token.Expiry),
	)

	// Clone the request, as round trippers aren't allowed to modify it:
	request = request.Clone(request.Context())
	request.Header.Set("Authorization", "Bearer "+token.Access)
	result, err = t.transport.RoundTrip(request)
	return
}

func httpClientFlagName(name, suffix string) string {
	if name == "" {
		return suffix
	}
	return fmt.Sprintf("%s-%s", name, suffix)
}
