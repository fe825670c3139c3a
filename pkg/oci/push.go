// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package oci

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/distribution/reference"
	ociv1 "github.com/opencontainers/image-spec/specs-go/v1"
	oras "oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content/file"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"

	apperrors "github.com/NVIDIA/bootcheck/pkg/errors"
)

// ArtifactType is the media type for crash archive OCI artifacts.
const ArtifactType = "application/vnd.nvidia.bootcheck.archive"

// PushOptions configures the OCI push operation.
type PushOptions struct {
	// SourceDir is the crash archive directory to push.
	SourceDir string
	// Registry is the OCI registry host (e.g., "ghcr.io", "localhost:5000").
	Registry string
	// Repository is the image repository path (e.g., "nvidia/crash").
	Repository string
	// Tag is the image tag.
	Tag string
	// PlainHTTP uses HTTP instead of HTTPS for the registry connection.
	PlainHTTP bool
	// InsecureTLS skips TLS certificate verification.
	InsecureTLS bool
	// Annotations are added to the manifest.
	Annotations map[string]string
}

// PushResult contains the result of a successful OCI push.
type PushResult struct {
	// Digest is the SHA256 digest of the pushed manifest.
	Digest string
	// Reference is the full image reference (registry/repository:tag).
	Reference string
}

// Push packs SourceDir into a single gzip layer and pushes it to a registry using ORAS.
func Push(ctx context.Context, opts PushOptions) (*PushResult, error) {
	if opts.Tag == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest, "tag is required to push OCI artifact")
	}

	registryHost := stripProtocol(opts.Registry)

	refString := fmt.Sprintf("%s/%s:%s", registryHost, opts.Repository, opts.Tag)
	if _, parseErr := reference.ParseNormalizedNamed(refString); parseErr != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid image reference '%s'", refString), parseErr)
	}

	fs, layerDesc, err := packArchive(ctx, opts.SourceDir, opts.Tag, opts.Annotations)
	if err != nil {
		return nil, err
	}
	defer func() { _ = fs.Close() }()

	repo, err := remote.NewRepository(fmt.Sprintf("%s/%s", registryHost, opts.Repository))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize remote repository: %w", err)
	}
	repo.PlainHTTP = opts.PlainHTTP
	repo.Client = createAuthClient(opts.PlainHTTP, opts.InsecureTLS)

	slog.Debug("pushing crash archive",
		"reference", refString,
		"layer_digest", layerDesc.Digest.String(),
	)

	desc, err := oras.Copy(ctx, fs, opts.Tag, repo, opts.Tag, oras.DefaultCopyOptions)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeUnavailable, "failed to push artifact to registry", err)
	}

	return &PushResult{
		Digest:    desc.Digest.String(),
		Reference: refString,
	}, nil
}

// packArchive builds a file store holding a tagged OCI 1.1 manifest with
// the archive directory as its only layer. The caller closes the store.
func packArchive(ctx context.Context, sourceDir, tag string, annotations map[string]string) (*file.Store, ociv1.Descriptor, error) {
	// ORAS resolves names relative to its working directory
	absDir, err := filepath.Abs(sourceDir)
	if err != nil {
		return nil, ociv1.Descriptor{}, fmt.Errorf("failed to get absolute path for source dir: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, ociv1.Descriptor{}, apperrors.Wrap(apperrors.ErrCodeNotFound, "archive directory not found", err)
	}
	if !info.IsDir() {
		return nil, ociv1.Descriptor{}, apperrors.New(apperrors.ErrCodeInvalidRequest,
			fmt.Sprintf("archive path is not a directory: %s", absDir))
	}

	fs, err := file.New(filepath.Dir(absDir))
	if err != nil {
		return nil, ociv1.Descriptor{}, fmt.Errorf("failed to create file store: %w", err)
	}
	fs.TarReproducible = true

	layerDesc, err := fs.Add(ctx, filepath.Base(absDir), ociv1.MediaTypeImageLayerGzip, absDir)
	if err != nil {
		_ = fs.Close()
		return nil, ociv1.Descriptor{}, fmt.Errorf("failed to add archive directory to store: %w", err)
	}

	packOpts := oras.PackManifestOptions{
		Layers:              []ociv1.Descriptor{layerDesc},
		ManifestAnnotations: annotations,
	}

	manifestDesc, err := oras.PackManifest(ctx, fs, oras.PackManifestVersion1_1, ArtifactType, packOpts)
	if err != nil {
		_ = fs.Close()
		return nil, ociv1.Descriptor{}, fmt.Errorf("failed to pack manifest: %w", err)
	}

	if tagErr := fs.Tag(ctx, manifestDesc, tag); tagErr != nil {
		_ = fs.Close()
		return nil, ociv1.Descriptor{}, fmt.Errorf("failed to tag manifest in local store: %w", tagErr)
	}

	return fs, layerDesc, nil
}

// stripProtocol removes http:// or https:// prefix from a registry URL.
func stripProtocol(registry string) string {
	registry = strings.TrimPrefix(registry, "https://")
	registry = strings.TrimPrefix(registry, "http://")
	return registry
}

// createAuthClient creates an HTTP client with optional TLS configuration
// and Docker credential support.
func createAuthClient(plainHTTP, insecureTLS bool) *auth.Client {
	credStore, _ := credentials.NewStoreFromDocker(credentials.StoreOptions{})

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !plainHTTP && insecureTLS {
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		} else {
			transport.TLSClientConfig.InsecureSkipVerify = true //nolint:gosec
		}
	}

	client := &auth.Client{
		Client: &http.Client{Transport: transport},
		Cache:  auth.NewCache(),
	}
	if credStore != nil {
		client.Credential = credentials.Credential(credStore)
	}
	return client
}
