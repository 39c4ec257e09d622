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
	"context"
)

// Provider is the interface that defines the capability that is common to all the authentication backends: acquiring
// a bearer token. Every call performs a complete exchange with the backend; no token is cached between calls. The
// call blocks until the exchange completes, the context is cancelled, or the provider's timeout expires.
//
// Implementations must be safe for concurrent use: configuration is read-only and any per-call scratch state is
// local to the call.
//
//go:generate mockgen -source=auth_provider.go -destination=auth_provider_mock.go -package=auth Provider
type Provider interface {
	// Acquire returns a freshly obtained token, or an error of type *Error if any step of the exchange fails.
	Acquire(ctx context.Context) (result *Token, err error)
}
