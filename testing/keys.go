/*
Copyright (c) 2025 Red Hat Inc.

Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the
License. You may obtain a copy of the License at

  http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
"AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the specific
language governing permissions and limitations under the License.
*/

package testing

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"os"

	. "github.com/onsi/gomega"
)

// MakeRSAKeyFile generates an RSA key pair and writes the private key, in PEM format, to a temporary file. It
// returns the name of the file and the public key, so that tests can verify signatures made with the private key.
// The caller is responsible for removing the file when no longer needed.
func MakeRSAKeyFile() (keyFile string, publicKey *rsa.PublicKey) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	Expect(err).ToNot(HaveOccurred())
	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	tmpFile, err := os.CreateTemp("", "*.test.key")
	Expect(err).ToNot(HaveOccurred())
	_, err = tmpFile.Write(keyPEM)
	Expect(err).ToNot(HaveOccurred())
	err = tmpFile.Close()
	Expect(err).ToNot(HaveOccurred())
	keyFile = tmpFile.Name()
	publicKey = &key.PublicKey
	return
}

// MakeServiceAccountKeyFile generates a service account key file that points to the given token endpoint, and writes
// it to a temporary file. The caller is responsible for removing the file when no longer needed.
func MakeServiceAccountKeyFile(tokenURL string) (keyFile string) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	Expect(err).ToNot(HaveOccurred())
	keyBytes, err := x509.MarshalPKCS8PrivateKey(key)
	Expect(err).ToNot(HaveOccurred())
	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PRIVATE KEY",
		Bytes: keyBytes,
	})
	data, err := json.Marshal(map[string]any{
		"type":           "service_account",
		"project_id":     "my-project",
		"private_key_id": "my-key",
		"private_key":    string(keyPEM),
		"client_email":   "my-service-account@my-project.iam.example.com",
		"client_id":      "123456789",
		"token_uri":      tokenURL,
	})
	Expect(err).ToNot(HaveOccurred())
	tmpFile, err := os.CreateTemp("", "*.test.json")
	Expect(err).ToNot(HaveOccurred())
	_, err = tmpFile.Write(data)
	Expect(err).ToNot(HaveOccurred())
	err = tmpFile.Close()
	Expect(err).ToNot(HaveOccurred())
	keyFile = tmpFile.Name()
	return
}
