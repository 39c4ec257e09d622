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

	. "github.com/onsi/ginkgo/v2/dsl/core"
	. "github.com/onsi/gomega"
)

var _ = Describe("Error", func() {
	It("Includes the kind and the message in the text", func() {
		err := NewConfigurationError("key file '%s' doesn't exist", "/my/key.pem")
		Expect(err.Error()).To(ContainSubstring("configuration"))
		Expect(err.Error()).To(ContainSubstring("key file '/my/key.pem' doesn't exist"))
	})

	It("Includes the upstream status code and body verbatim", func() {
		err := NewUpstreamError(400, `{"error":"invalid_client"}`, "token endpoint rejected the request")
		Expect(err.Status).To(Equal(400))
		Expect(err.Body).To(Equal(`{"error":"invalid_client"}`))
		Expect(err.Error()).To(ContainSubstring("400"))
		Expect(err.Error()).To(ContainSubstring("invalid_client"))
	})

	It("Wraps the cause", func() {
		cause := errors.New("connection refused")
		err := NewTransportError(cause, "failed to send token request")
		Expect(errors.Is(err, cause)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("connection refused"))
	})

	It("Can be classified by kind", func() {
		err := NewConfigurationError("something is wrong")
		Expect(IsKind(err, ErrorKindConfiguration)).To(BeTrue())
		Expect(IsKind(err, ErrorKindTransport)).To(BeFalse())
		Expect(IsKind(err, ErrorKindUpstream)).To(BeFalse())
	})

	It("Can be classified by kind through wrapping", func() {
		inner := NewUpstreamError(500, "boom", "token endpoint failed")
		outer := fmt.Errorf("failed to acquire token: %w", inner)
		Expect(IsKind(outer, ErrorKindUpstream)).To(BeTrue())
	})

	It("Doesn't classify unrelated errors", func() {
		err := errors.New("something else")
		Expect(IsKind(err, ErrorKindConfiguration)).To(BeFalse())
	})
})
