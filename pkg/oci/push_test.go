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
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	ociv1 "github.com/opencontainers/image-spec/specs-go/v1"
	oras "oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/content/oci"

	apperrors "github.com/NVIDIA/bootcheck/pkg/errors"
)

func TestStripProtocol(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"https prefix", "https://ghcr.io", "ghcr.io"},
		{"http prefix", "http://localhost:5000", "localhost:5000"},
		{"no prefix", "registry.example.com", "registry.example.com"},
		{"https with path", "https://ghcr.io/nvidia", "ghcr.io/nvidia"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stripProtocol(tt.input)
			if got != tt.expected {
				t.Errorf("stripProtocol(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestPush_EmptyTag(t *testing.T) {
	_, err := Push(context.Background(), PushOptions{
		SourceDir:  t.TempDir(),
		Registry:   "localhost:5000",
		Repository: "test/crash",
	})
	if !apperrors.IsCode(err, apperrors.ErrCodeInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
}

func TestPush_InvalidReference(t *testing.T) {
	_, err := Push(context.Background(), PushOptions{
		SourceDir:  t.TempDir(),
		Registry:   "localhost:5000",
		Repository: "INVALID/Repo",
		Tag:        "v1",
	})
	if !apperrors.IsCode(err, apperrors.ErrCodeInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
}

func TestPush_MissingArchive(t *testing.T) {
	_, err := Push(context.Background(), PushOptions{
		SourceDir:  filepath.Join(t.TempDir(), "missing"),
		Registry:   "localhost:5000",
		Repository: "test/crash",
		Tag:        "v1",
	})
	if !apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPackArchive(t *testing.T) {
	ctx := context.Background()

	archive := filepath.Join(t.TempDir(), "20261019T101010Z-abc")
	if err := os.MkdirAll(filepath.Join(archive, "ap"), 0o755); err != nil {
		t.Fatal(err)
	}
	for name, data := range map[string]string{
		"DONE":        "",
		"report.yaml": "kind: IncidentReport\n",
		"ap/dump.log": "panic\n",
	} {
		if err := os.WriteFile(filepath.Join(archive, name), []byte(data), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	fs, layer, err := packArchive(ctx, archive, "v1", map[string]string{"org.opencontainers.image.title": "crash"})
	if err != nil {
		t.Fatalf("packArchive() error = %v", err)
	}
	defer func() { _ = fs.Close() }()

	if layer.MediaType != ociv1.MediaTypeImageLayerGzip {
		t.Errorf("layer media type = %s", layer.MediaType)
	}
	if got := layer.Annotations[ociv1.AnnotationTitle]; got != "20261019T101010Z-abc" {
		t.Errorf("layer title = %q", got)
	}

	store, err := oci.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	desc, err := oras.Copy(ctx, fs, "v1", store, "v1", oras.DefaultCopyOptions)
	if err != nil {
		t.Fatalf("oras.Copy() error = %v", err)
	}

	raw, err := content.FetchAll(ctx, store, desc)
	if err != nil {
		t.Fatal(err)
	}
	var manifest ociv1.Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		t.Fatal(err)
	}
	if manifest.ArtifactType != ArtifactType {
		t.Errorf("artifact type = %q, want %q", manifest.ArtifactType, ArtifactType)
	}
	if len(manifest.Layers) != 1 {
		t.Fatalf("expected 1 layer, got %d", len(manifest.Layers))
	}
	if manifest.Annotations["org.opencontainers.image.title"] != "crash" {
		t.Errorf("manifest annotations = %v", manifest.Annotations)
	}
}
