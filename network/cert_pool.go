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
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
)

// CertPoolBuilder contains the data and logic needed to create the certificate pool that the providers trust when
// connecting to token endpoints. Don't create instances of this object directly, use the NewCertPool function
// instead.
type CertPoolBuilder struct {
	logger          *slog.Logger
	systemFiles     bool
	kubernetesFiles bool
	files           []string
	exts            []string
}

// NewCertPool creates a builder that can then be used to configure and create a certificate pool.
func NewCertPool() *CertPoolBuilder {
	return &CertPoolBuilder{
		exts: certPoolDefaultExts,
	}
}

// SetLogger sets the logger that the loader will use to send messages to the log. This is mandatory.
func (b *CertPoolBuilder) SetLogger(value *slog.Logger) *CertPoolBuilder {
	b.logger = value
	return b
}

// AddSystemFiles adds the CA certificates trusted by the operating system to the pool. The default is to not add
// them.
func (b *CertPoolBuilder) AddSystemFiles(value bool) *CertPoolBuilder {
	b.systemFiles = value
	return b
}

// AddKubernetesFiles adds the Kubernetes service account CA files to the pool, when they exist. The ingestion client
// frequently runs inside a cluster where the metadata service and identity provider use certificates signed by these
// authorities. The default is to not add them.
func (b *CertPoolBuilder) AddKubernetesFiles(value bool) *CertPoolBuilder {
	b.kubernetesFiles = value
	return b
}

// AddFile adds a file containing CA certificates to be loaded into the pool. The parameter can also be a directory,
// in which case all certificate files within that directory and its subdirectories will be loaded. Only files with
// recognized certificate extensions are processed when loading from directories, see AddExtension.
func (b *CertPoolBuilder) AddFile(value string) *CertPoolBuilder {
	b.files = append(b.files, value)
	return b
}

// AddFiles adds multiple files containing CA certificates to be loaded into the pool. Each parameter can be either a
// file or a directory, with the same semantics as AddFile.
func (b *CertPoolBuilder) AddFiles(values ...string) *CertPoolBuilder {
	b.files = append(b.files, values...)
	return b
}

// AddExtension adds a file name extension that is allowed when loading files from directories. The default is to
// only load files with '.pem', '.crt' and '.cer' extensions.
func (b *CertPoolBuilder) AddExtension(value string) *CertPoolBuilder {
	b.exts = append(b.exts, value)
	return b
}

// Build uses the data stored in the builder to create a new certificate pool.
func (b *CertPoolBuilder) Build() (result *x509.CertPool, err error) {
	// Check parameters:
	if b.logger == nil {
		err = errors.New("logger is mandatory")
		return
	}

	// Start with an empty pool, or with a copy of the system pool if the system files are enabled:
	var pool *x509.CertPool
	if b.systemFiles {
		pool, err = x509.SystemCertPool()
		if err != nil {
			return
		}
	} else {
		pool = x509.NewCertPool()
	}

	// Sort the extensions so that we can use a binary search to check if an extension is allowed:
	sort.Strings(b.exts)

	// Add the Kubernetes CA files if enabled. These may legitimately not exist when running outside a cluster:
	if b.kubernetesFiles {
		for _, caFile := range certPoolKubernetesCaFiles {
			err = b.loadFile(pool, caFile)
			if errors.Is(err, os.ErrNotExist) {
				b.logger.Debug(
					"Kubernetes CA file doesn't exist",
					slog.String("file", caFile),
				)
				err = nil
			}
			if err != nil {
				return
			}
		}
	}

	// Load the explicitly configured CA files:
	for _, caFile := range b.files {
		err = b.loadFile(pool, caFile)
		if err != nil {
			return
		}
	}

	result = pool
	return
}

func (b *CertPoolBuilder) loadFile(pool *x509.CertPool, caFile string) error {
	info, err := os.Stat(caFile)
	if err != nil {
		return err
	}
	if info.IsDir() {
		b.logger.Debug(
			"Loading CA directory",
			slog.String("directory", caFile),
		)
		dirEntries, err := os.ReadDir(caFile)
		if err != nil {
			return err
		}
		for _, dirEntry := range dirEntries {
			fileName := dirEntry.Name()
			fullPath := filepath.Join(caFile, fileName)
			if dirEntry.IsDir() {
				err := b.loadFile(pool, fullPath)
				if err != nil {
					return err
				}
				continue
			}
			fileExt := filepath.Ext(fileName)
			if !b.validExt(fileExt) {
				b.logger.Debug(
					"Ignoring file because it doesn't have a valid extension",
					slog.String("directory", caFile),
					slog.String("file", fileName),
					slog.String("ext", fileExt),
					slog.Any("valid", b.exts),
				)
				continue
			}
			err := b.loadFile(pool, fullPath)
			if err != nil {
				return err
			}
		}
		return nil
	}
	b.logger.Debug(
		"Loading CA file",
		slog.String("file", caFile),
	)
	data, err := os.ReadFile(caFile)
	if err != nil {
		return err
	}
	ok := pool.AppendCertsFromPEM(data)
	if !ok {
		return fmt.Errorf("file '%s' exists, but it doesn't contain any CA certificate", caFile)
	}
	return nil
}

func (b *CertPoolBuilder) validExt(ext string) bool {
	_, found := slices.BinarySearch(b.exts, ext)
	return found
}

// certPoolDefaultExts is the default list of file name extensions that are allowed when loading files from
// directories.
var certPoolDefaultExts = []string{
	".cer",
	".crt",
	".pem",
}

// certPoolKubernetesCaFiles is the list of Kubernetes CA files that will be automatically loaded if they exist.
var certPoolKubernetesCaFiles = []string{
	// This is the CA used by Kubernetes to sign the certificates of service accounts.
	"/var/run/secrets/kubernetes.io/serviceaccount/ca.crt",

	// This is the CA used by OpenShift to sign the certificates generated for services.
	"/var/run/secrets/kubernetes.io/serviceaccount/service-ca.crt",
}
