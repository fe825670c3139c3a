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

package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/NVIDIA/bootcheck/pkg/defaults"
	"github.com/NVIDIA/bootcheck/pkg/dumper"
	"github.com/NVIDIA/bootcheck/pkg/incident"
	"github.com/NVIDIA/bootcheck/pkg/module"
	"golang.org/x/time/rate"
	"k8s.io/utils/clock"
)

// Registry reports which modules currently have a dumper able to serve them.
type Registry interface {
	CurrentRegistered() module.Mask
}

// Notifier asks registered dumpers to dump and reports which modules completed.
type Notifier interface {
	NotifyDump(ctx context.Context, req dumper.Request) module.Mask
}

// StopReason explains why a drain ended.
type StopReason string

// Drain stop reasons.
const (
	StopComplete   StopReason = "complete"
	StopNoProgress StopReason = "no-progress"
	StopWaitLimit  StopReason = "wait-limit"
	StopCanceled   StopReason = "canceled"
)

// Result summarizes a drain.
type Result struct {
	Requested module.Set
	Completed module.Set
	Remaining module.Set
	Rounds    int
	Stop      StopReason
}

// Partial reports whether some requested modules were left without a dump.
func (r Result) Partial() bool {
	return !r.Remaining.IsEmpty()
}

// Orchestrator drains an incident's module set by repeatedly notifying
// registered dumpers until every module has dumped or progress stops.
type Orchestrator struct {
	registry     Registry
	notifier     Notifier
	clock        clock.Clock
	pollInterval time.Duration
	maxWait      time.Duration
	waitLog      *rate.Sometimes
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock sets the clock used for registration waits.
func WithClock(c clock.Clock) Option {
	return func(o *Orchestrator) {
		o.clock = c
	}
}

// WithPollInterval sets the delay between registration checks.
func WithPollInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.pollInterval = d
	}
}

// WithMaxRegistrationWait bounds the total time spent waiting for any
// outstanding module to register. Zero waits forever.
func WithMaxRegistrationWait(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.maxWait = d
	}
}

// New returns an Orchestrator. Typically registry and notifier are the same dumper.Registry.
func New(registry Registry, notifier Notifier, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry:     registry,
		notifier:     notifier,
		clock:        clock.RealClock{},
		pollInterval: defaults.RegistrationPollInterval,
		maxWait:      defaults.RegistrationWaitMax,
		waitLog:      &rate.Sometimes{First: 1, Interval: defaults.WaitLogInterval},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Drain collects dumps for info into path. info.Mask shrinks as modules
// complete and is empty on full success. A round in which nothing completes
// ends the drain with the remaining modules left in info.Mask.
func (o *Orchestrator) Drain(ctx context.Context, path string, info *incident.Info) Result {
	res := Result{Requested: info.Mask}
	var waited time.Duration

	for !info.Mask.IsEmpty() {
		if ctx.Err() != nil {
			res.Stop = StopCanceled
			break
		}

		ready := module.FromMask(o.registry.CurrentRegistered()).Intersect(info.Mask)
		if ready.IsEmpty() {
			if o.maxWait > 0 && waited >= o.maxWait {
				slog.Warn("gave up waiting for module registration",
					"waited", waited.String(),
					"remaining", info.Mask.String())
				res.Stop = StopWaitLimit
				break
			}
			o.waitLog.Do(func() {
				slog.Info("waiting for modules to register", "remaining", info.Mask.String())
			})
			o.clock.Sleep(o.pollInterval)
			waited += o.pollInterval
			continue
		}

		res.Rounds++
		req := dumper.NewRequest(info, info.Mask, path)
		reported := module.FromMask(o.notifier.NotifyDump(ctx, req))
		if !reported.IsSubsetOf(info.Mask) {
			slog.Warn("dumpers reported modules that were not requested",
				"round", res.Rounds,
				"extra", reported.Difference(info.Mask).String())
		}
		completed := reported.Intersect(info.Mask)
		if completed.IsEmpty() {
			slog.Warn("dump round made no progress",
				"round", res.Rounds,
				"ready", ready.String(),
				"remaining", info.Mask.String())
			res.Stop = StopNoProgress
			break
		}

		info.Mask = info.Mask.Difference(completed)
		res.Completed = res.Completed.Union(completed)
		slog.Info("dump round completed",
			"round", res.Rounds,
			"completed", completed.String(),
			"remaining", info.Mask.String())
	}

	if info.Mask.IsEmpty() {
		res.Stop = StopComplete
	} else {
		slog.Warn("partial dump completion accepted",
			"modid", info.ModID.String(),
			"completed", res.Completed.String(),
			"remaining", info.Mask.String())
	}
	res.Remaining = info.Mask
	return res
}
