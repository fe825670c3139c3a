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
	"log/slog"
	"sync"
	"time"

	"github.com/NVIDIA/bootcheck/pkg/defaults"
	"k8s.io/utils/clock"
)

// Registrar registers dumpers with a Registry once their readiness probe passes.
// Registration happens in the background so a slow subsystem never holds up
// the others.
type Registrar struct {
	registry *Registry
	clock    clock.Clock
	interval time.Duration
	wg       sync.WaitGroup
}

// NewRegistrar returns a Registrar feeding registry.
func NewRegistrar(registry *Registry, clk clock.Clock, interval time.Duration) *Registrar {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if interval <= 0 {
		interval = defaults.RegistrarPollInterval
	}
	return &Registrar{registry: registry, clock: clk, interval: interval}
}

// Start polls probe until it reports ready, then registers d. Polling stops
// when ctx is canceled. A nil probe registers immediately.
func (r *Registrar) Start(ctx context.Context, d Dumper, probe Probe) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.await(ctx, d, probe)
	}()
}

// Wait blocks until every started registration has finished or given up.
func (r *Registrar) Wait() {
	r.wg.Wait()
}

func (r *Registrar) await(ctx context.Context, d Dumper, probe Probe) {
	for {
		ready := true
		if probe != nil {
			var err error
			ready, err = probe(ctx)
			if err != nil {
				slog.Debug("readiness probe failed", "dumper", d.Name(), "error", err)
				ready = false
			}
		}
		if ready {
			if err := r.registry.Register(d); err != nil {
				slog.Warn("dumper registration rejected", "dumper", d.Name(), "error", err)
			}
			return
		}

		t := r.clock.NewTimer(r.interval)
		select {
		case <-ctx.Done():
			t.Stop()
			slog.Debug("dumper never became ready", "dumper", d.Name())
			return
		case <-t.C():
		}
	}
}
