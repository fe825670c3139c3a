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

package dumper

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/NVIDIA/bootcheck/pkg/defaults"
	"github.com/NVIDIA/bootcheck/pkg/module"
	"golang.org/x/sync/errgroup"
)

// Registry tracks the dumpers that are currently able to take a dump.
// It is safe for concurrent use: dumpers register while a drain is running.
type Registry struct {
	mu          sync.RWMutex
	dumpers     map[string]Dumper
	timeout     time.Duration
	concurrency int
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithDumpTimeout bounds each individual Dump call.
func WithDumpTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		r.timeout = d
	}
}

// WithConcurrency limits how many dumpers run at once.
func WithConcurrency(n int) RegistryOption {
	return func(r *Registry) {
		r.concurrency = n
	}
}

// NewRegistry returns an empty Registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		dumpers:     make(map[string]Dumper),
		timeout:     defaults.DumperTimeout,
		concurrency: defaults.DumperConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds d. Names must be unique.
func (r *Registry) Register(d Dumper) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.dumpers[d.Name()]; ok {
		return fmt.Errorf("dumper %q already registered", d.Name())
	}
	r.dumpers[d.Name()] = d
	registeredDumpers.Set(float64(len(r.dumpers)))
	slog.Info("dumper registered", "dumper", d.Name(), "modules", d.Modules().String())
	return nil
}

// CurrentRegistered returns the union of modules covered by registered dumpers.
func (r *Registry) CurrentRegistered() module.Mask {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var s module.Set
	for _, d := range r.dumpers {
		s = s.Union(d.Modules())
	}
	return s.Mask()
}

// matching returns registered dumpers covering any of want, sorted by name.
func (r *Registry) matching(want module.Set) []Dumper {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Dumper, 0, len(r.dumpers))
	for _, d := range r.dumpers {
		if !d.Modules().Intersect(want).IsEmpty() {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// NotifyDump runs every registered dumper covering a requested module and
// returns the modules that completed. Dumper failures are logged and leave
// their modules out of the result; a module covered by several dumpers is
// complete once any of them succeeds.
func (r *Registry) NotifyDump(ctx context.Context, req Request) module.Mask {
	want := module.FromMask(req.Mask)
	targets := r.matching(want)
	if len(targets) == 0 {
		return 0
	}

	var (
		mu        sync.Mutex
		completed module.Set
	)

	g, gctx := errgroup.WithContext(ctx)
	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}

	for _, d := range targets {
		g.Go(func() error {
			covered := d.Modules().Intersect(want)
			if err := r.run(gctx, d, req, covered); err != nil {
				slog.Error("dumper failed",
					"dumper", d.Name(),
					"modules", covered.String(),
					"error", err)
				return nil
			}
			mu.Lock()
			completed = completed.Union(covered)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return completed.Mask()
}

func (r *Registry) run(ctx context.Context, d Dumper, req Request, covered module.Set) error {
	start := time.Now()
	status := "success"
	defer func() {
		dumperDuration.WithLabelValues(d.Name()).Observe(time.Since(start).Seconds())
		dumperRunsTotal.WithLabelValues(d.Name(), status).Inc()
	}()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	dir := filepath.Join(req.Path, d.Name())
	if err := os.MkdirAll(dir, 0o750); err != nil {
		status = "error"
		return fmt.Errorf("failed to create dumper directory %q: %w", dir, err)
	}

	err := d.Dump(ctx, Job{
		ModID:   req.ModID,
		Modules: covered,
		Core:    module.FromMask(req.Core),
		Type:    req.Type,
		Subtype: req.Subtype,
		Dir:     dir,
	})
	if err != nil {
		status = "error"
		return err
	}
	slog.Debug("dumper completed", "dumper", d.Name(), "duration", time.Since(start).String())
	return nil
}
