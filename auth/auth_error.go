/*
Copyright (c) 2025 Red Hat Inc.

Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the
License. You may obtain a copy of the License at

  http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
"AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the specific
language governing permissions and limitations under the License.
*/

package auth

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the failures that can happen while acquiring a token.
type ErrorKind string

const (
	// ErrorKindConfiguration indicates an unsupported or malformed security configuration, including missing or
	// unreadable key material. No network activity happened.
	ErrorKindConfiguration ErrorKind = "configuration"

	// ErrorKindTransport indicates a network or TLS failure while trying to reach the token endpoint.
	ErrorKindTransport ErrorKind = "transport"

	// ErrorKindUpstream indicates that the token endpoint was reached, but it returned a non success status or a
	// response that is missing the expected fields.
	ErrorKindUpstream ErrorKind = "upstream"
)

// Error is the error type returned by all the providers. It is always recoverable: the decision to abort or retry
// belongs to the caller, never to a provider. The message and the body it carries never contain secret material such
// as client secrets or private keys.
type Error struct {
	// Kind is the classification of the failure.
	Kind ErrorKind

	// Message is a human readable description of the failure.
	Message string

	// Status is the HTTP status code returned by the token endpoint, when one was received, zero otherwise.
	Status int

	// Body is the verbatim response body returned by the token endpoint, when one was received. It is kept as is
	// to aid diagnosis of upstream failures.
	Body string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *Error) Error() string {
	text := fmt.Sprintf("%s error: %s", e.Kind, e.Message)
	if e.Status != 0 {
		text = fmt.Sprintf("%s: status is %d", text, e.Status)
	}
	if e.Body != "" {
		text = fmt.Sprintf("%s: body is '%s'", text, e.Body)
	}
	if e.Cause != nil {
		text = fmt.Sprintf("%s: %v", text, e.Cause)
	}
	return text
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewConfigurationError creates an error that indicates a configuration problem.
func NewConfigurationError(format string, args ...any) *Error {
	return &Error{
		Kind:    ErrorKindConfiguration,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewTransportError creates an error that indicates a failure to reach the token endpoint.
func NewTransportError(cause error, format string, args ...any) *Error {
	return &Error{
		Kind:    ErrorKindTransport,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// NewUpstreamError creates an error that indicates a failure reported by the token endpoint. The status and body are
// carried verbatim.
func NewUpstreamError(status int, body string, format string, args ...any) *Error {
	return &Error{
		Kind:    ErrorKindUpstream,
		Message: fmt.Sprintf(format, args...),
		Status:  status,
		Body:    body,
	}
}

// IsKind returns true if the given error is a provider error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var providerErr *Error
	if errors.As(err, &providerErr) {
		return providerErr.Kind == kind
	}
	return false
}
