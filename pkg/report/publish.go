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

package report

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/NVIDIA/bootcheck/pkg/defaults"
	"github.com/NVIDIA/bootcheck/pkg/oci"
	"github.com/NVIDIA/bootcheck/pkg/serializer"
)

// PushFunc uploads an archive directory to a registry.
type PushFunc func(ctx context.Context, opts oci.PushOptions) (*oci.PushResult, error)

// Publisher sends a finished report off the device: the document to a
// ConfigMap and the archive to an OCI registry. Either destination is optional.
type Publisher struct {
	configMap   string
	format      serializer.Format
	cmOpts      []serializer.ConfigMapOption
	target      *oci.Reference
	plainHTTP   bool
	insecureTLS bool
	push        PushFunc
}

// Option configures a Publisher.
type Option func(*Publisher) error

// WithConfigMap publishes the report to cm://namespace/name.
func WithConfigMap(uri string, format serializer.Format, opts ...serializer.ConfigMapOption) Option {
	return func(p *Publisher) error {
		if _, _, err := serializer.ParseConfigMapURI(uri); err != nil {
			return err
		}
		p.configMap = uri
		p.format = format
		p.cmOpts = opts
		return nil
	}
}

// WithRegistry pushes the archive to an oci://registry/repository[:tag]
// target. Without a tag the archive name is used.
func WithRegistry(target string, plainHTTP, insecureTLS bool) Option {
	return func(p *Publisher) error {
		ref, err := oci.ParseReference(target)
		if err != nil {
			return err
		}
		p.target = ref
		p.plainHTTP = plainHTTP
		p.insecureTLS = insecureTLS
		return nil
	}
}

// WithPushFunc replaces the registry client.
func WithPushFunc(fn PushFunc) Option {
	return func(p *Publisher) error {
		p.push = fn
		return nil
	}
}

// NewPublisher creates a Publisher. With no options it publishes nothing.
func NewPublisher(opts ...Option) (*Publisher, error) {
	p := &Publisher{
		format: serializer.FormatYAML,
		push:   oci.Push,
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, fmt.Errorf("invalid report publisher option: %w", err)
		}
	}
	return p, nil
}

// Enabled reports whether any destination is configured.
func (p *Publisher) Enabled() bool {
	return p != nil && (p.configMap != "" || p.target != nil)
}

// Publish sends r and the archive at dir to every configured destination
// in parallel. A failing destination does not cancel the other one; the
// first error is returned.
func (p *Publisher) Publish(ctx context.Context, r *Report, dir string) error {
	if !p.Enabled() {
		return nil
	}

	var g errgroup.Group

	if p.configMap != "" {
		g.Go(func() error {
			w := serializer.NewFileWriterOrStdout(p.format, p.configMap, p.cmOpts...)
			defer func() {
				if c, ok := w.(serializer.Closer); ok {
					_ = c.Close()
				}
			}()
			if err := w.Serialize(ctx, r); err != nil {
				return fmt.Errorf("failed to publish report to %s: %w", p.configMap, err)
			}
			slog.Info("report published", "destination", p.configMap)
			return nil
		})
	}

	if p.target != nil {
		g.Go(func() error {
			pushCtx, cancel := context.WithTimeout(ctx, defaults.OCIPushTimeout)
			defer cancel()

			tag := p.target.Tag
			if tag == "" {
				tag = oci.TagFor(r.Archive.Name)
			}
			annotations := map[string]string{
				"org.opencontainers.image.title":  r.Archive.Name,
				"org.opencontainers.image.vendor": "NVIDIA",
				"com.nvidia.bootcheck.modid":      r.Incident.ModID,
				"com.nvidia.bootcheck.reason":     r.Incident.Reason,
			}
			for k, v := range r.Metadata {
				annotations["com.nvidia.bootcheck."+k] = v
			}
			res, err := p.push(pushCtx, oci.PushOptions{
				SourceDir:   dir,
				Registry:    p.target.Registry,
				Repository:  p.target.Repository,
				Tag:         tag,
				PlainHTTP:   p.plainHTTP,
				InsecureTLS: p.insecureTLS,
				Annotations: annotations,
			})
			if err != nil {
				return fmt.Errorf("failed to push archive to %s: %w", p.target.WithTag(tag), err)
			}
			slog.Info("archive pushed", "reference", res.Reference, "digest", res.Digest)
			return nil
		})
	}

	return g.Wait()
}
