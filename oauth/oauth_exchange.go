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
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-querystring/query"

	"github.com/opencatalog/ingestion-common/auth"
	"github.com/opencatalog/ingestion-common/network"
)

// defaultExchangeTimeout bounds the wait for a token exchange when the builder doesn't specify one. Every exchange
// must have a bounded wait, so a zero timeout selects this default instead of disabling the limit.
const defaultExchangeTimeout = 30 * time.Second

// clientAssertionType is the assertion type used by the JWT bearer client credentials flow, as defined in RFC 7523.
const clientAssertionType = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"

type tokenEndpointRequest struct {
	Audience            string   `url:"audience,omitempty"`
	ClientAssertion     string   `url:"client_assertion,omitempty"`
	ClientAssertionType string   `url:"client_assertion_type,omitempty"`
	ClientId            string   `url:"client_id,omitempty"`
	ClientSecret        string   `url:"client_secret,omitempty"`
	GrantType           string   `url:"grant_type,omitempty"`
	Scope               []string `url:"scope,omitempty,space"`
}

type tokenEndpointResponse struct {
	AccessToken string `json:"access_token,omitempty"`
	ExpiresIn   *int   `json:"expires_in,omitempty"`
	Scope       string `json:"scope,omitempty"`
	TokenType   string `json:"token_type,omitempty"`
}

// tokenExchanger sends form encoded token requests. All the providers that talk to a token endpoint directly share
// this so that timeouts, TLS handling and error mapping don't diverge between backends.
type tokenExchanger struct {
	logger *slog.Logger
	client *http.Client
}

// sendTokenForm sends a single form encoded POST to the given endpoint and parses the response strictly: a non
// success status becomes an upstream error carrying the status code and the verbatim body, and a success response
// missing the access token or the expiry is also an upstream error, as silently treating a token as unexpiring would
// be a security risk.
func (e *tokenExchanger) sendTokenForm(ctx context.Context, endpoint string,
	request tokenEndpointRequest) (response tokenEndpointResponse, err error) {
	values, err := query.Values(request)
	if err != nil {
		err = auth.NewConfigurationError("failed to encode token request: %v", err)
		return
	}
	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(values.Encode()))
	if err != nil {
		err = auth.NewConfigurationError("failed to create token request for endpoint '%s': %v", endpoint, err)
		return
	}
	httpRequest.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpRequest.Header.Set("Accept", "application/json")
	httpResponse, err := e.client.Do(httpRequest)
	if err != nil {
		e.logger.ErrorContext(
			ctx,
			"Failed to send token request",
			slog.String("endpoint", endpoint),
			slog.Any("error", err),
		)
		err = auth.NewTransportError(err, "failed to send token request to endpoint '%s'", endpoint)
		return
	}
	defer func() {
		closeErr := httpResponse.Body.Close()
		if closeErr != nil {
			e.logger.ErrorContext(
				ctx,
				"Failed to close response body",
				slog.Any("error", closeErr),
			)
		}
	}()
	body, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		err = auth.NewTransportError(err, "failed to read response from endpoint '%s'", endpoint)
		return
	}
	if httpResponse.StatusCode < http.StatusOK || httpResponse.StatusCode >= http.StatusMultipleChoices {
		e.logger.ErrorContext(
			ctx,
			"Token endpoint returned an error",
			slog.String("endpoint", endpoint),
			slog.Int("status", httpResponse.StatusCode),
			slog.String("body", string(body)),
		)
		err = auth.NewUpstreamError(
			httpResponse.StatusCode, string(body),
			"token endpoint '%s' rejected the request", endpoint,
		)
		return
	}
	err = json.Unmarshal(body, &response)
	if err != nil {
		err = auth.NewUpstreamError(
			httpResponse.StatusCode, string(body),
			"failed to decode response from endpoint '%s'", endpoint,
		)
		return
	}
	if response.AccessToken == "" {
		err = auth.NewUpstreamError(
			httpResponse.StatusCode, string(body),
			"response from endpoint '%s' doesn't contain the 'access_token' field", endpoint,
		)
		return
	}
	if response.ExpiresIn == nil {
		err = auth.NewUpstreamError(
			httpResponse.StatusCode, string(body),
			"response from endpoint '%s' doesn't contain the 'expires_in' field", endpoint,
		)
		return
	}
	e.logger.DebugContext(
		ctx,
		"Received token response",
		slog.String("endpoint", endpoint),
		slog.String("!access", response.AccessToken),
		slog.Int("expires_in", *response.ExpiresIn),
	)
	return
}

// tokenFromResponse converts the response into a token, normalizing the relative lifetime into an absolute expiry
// time.
func (e *tokenExchanger) tokenFromResponse(response tokenEndpointResponse) *auth.Token {
	return &auth.Token{
		Access: response.AccessToken,
		Expiry: secondsToTime(*response.ExpiresIn),
	}
}

func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds * int(time.Second))
}

func secondsToTime(seconds int) time.Time {
	return time.Now().Add(secondsToDuration(seconds))
}

// buildHttpClient creates the HTTP client used for token exchanges, with the given TLS settings and a bounded
// timeout.
func buildHttpClient(logger *slog.Logger, caPool *x509.CertPool, insecure bool,
	timeout time.Duration) (result *http.Client, err error) {
	if timeout == 0 {
		timeout = defaultExchangeTimeout
	}
	result, err = network.NewHttpClient().
		SetLogger(logger).
		SetCaPool(caPool).
		SetInsecure(insecure).
		SetTimeout(timeout).
		Build()
	return
}
