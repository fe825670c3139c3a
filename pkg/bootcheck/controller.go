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

package bootcheck

import (
	"context"
	"fmt"
	"log/slog"

	"k8s.io/utils/clock"

	"github.com/NVIDIA/bootcheck/pkg/crashstore"
	"github.com/NVIDIA/bootcheck/pkg/finalizer"
	"github.com/NVIDIA/bootcheck/pkg/incident"
	"github.com/NVIDIA/bootcheck/pkg/loopguard"
	"github.com/NVIDIA/bootcheck/pkg/orchestrator"
	"github.com/NVIDIA/bootcheck/pkg/report"
)

// State is a controller state.
type State string

// Controller states in the order they are visited.
const (
	StateStart       State = "START"
	StateWaitStorage State = "WAIT_STORAGE_READY"
	StateClassify    State = "CLASSIFY"
	StateLoopGuard   State = "LOOP_GUARD"
	StateDrain       State = "DRAIN"
	StateFinalize    State = "FINALIZE"
	StateReboot      State = "REBOOT"
	StateEnd         State = "END"
)

// Outcome summarizes how a run ended.
type Outcome string

// Run outcomes.
const (
	OutcomeNoSave          Outcome = "no-save"
	OutcomeSaved           Outcome = "saved"
	OutcomePartial         Outcome = "partial"
	OutcomePathFailure     Outcome = "path-failure"
	OutcomeFinalizeFailure Outcome = "finalize-failure"
	OutcomeRebooted        Outcome = "rebooted"
	OutcomeStorageFailure  Outcome = "storage-failure"
)

// Storage is the crash log filesystem.
type Storage interface {
	finalizer.Storage
	WaitForMount(ctx context.Context) error
}

// Classifier decides whether the previous session needs collection.
type Classifier interface {
	Classify(ctx context.Context) incident.Decision
}

// LoopGuard tracks self-triggered reboots.
type LoopGuard interface {
	CheckAndMaybeRecover(ctx context.Context, selfTriggered bool) loopguard.Action
	Count() int
}

// Drainer collects module dumps into an archive directory.
type Drainer interface {
	Drain(ctx context.Context, path string, info *incident.Info) orchestrator.Result
}

// Capturer saves an early diagnostic and returns where it went.
type Capturer interface {
	Capture(ctx context.Context) (string, error)
}

// Snapshotter saves a diagnostics partition once storage is ready.
type Snapshotter interface {
	Save(ctx context.Context) (string, error)
}

// Publisher sends a finished report off the device.
type Publisher interface {
	Publish(ctx context.Context, r *report.Report, dir string) error
}

// Result describes one controller run.
type Result struct {
	States   []State
	Outcome  Outcome
	Decision incident.Decision
	Archive  *finalizer.Archive
	Drain    orchestrator.Result
	Report   *report.Report
}

// Controller runs the boot-time crash check once.
type Controller struct {
	storage    Storage
	store      crashstore.Store
	classifier Classifier
	guard      LoopGuard
	drainer    Drainer
	finalizer  *finalizer.Finalizer

	bootFail  Capturer
	dfx       Snapshotter
	publisher Publisher
	notifier  StatusNotifier
	clock     clock.PassiveClock
	version   string
}

// Option configures a Controller.
type Option func(*Controller)

// WithBootFailCapture copies the bootloader failure record at START.
func WithBootFailCapture(c Capturer) Option {
	return func(ctl *Controller) {
		ctl.bootFail = c
	}
}

// WithDFXSnapshot saves the diagnostics partition once storage is ready.
func WithDFXSnapshot(s Snapshotter) Option {
	return func(ctl *Controller) {
		ctl.dfx = s
	}
}

// WithPublisher publishes completed archives.
func WithPublisher(p Publisher) Option {
	return func(ctl *Controller) {
		ctl.publisher = p
	}
}

// WithNotifier sets the service manager notifier.
func WithNotifier(n StatusNotifier) Option {
	return func(ctl *Controller) {
		ctl.notifier = n
	}
}

// WithClock sets the clock used for stage timing.
func WithClock(c clock.PassiveClock) Option {
	return func(ctl *Controller) {
		ctl.clock = c
	}
}

// WithVersion stamps reports with the binary version.
func WithVersion(v string) Option {
	return func(ctl *Controller) {
		ctl.version = v
	}
}

// New creates a Controller from its capabilities.
func New(storage Storage, store crashstore.Store, classifier Classifier, guard LoopGuard,
	drainer Drainer, fin *finalizer.Finalizer, opts ...Option) *Controller {

	c := &Controller{
		storage:    storage,
		store:      store,
		classifier: classifier,
		guard:      guard,
		drainer:    drainer,
		finalizer:  fin,
		notifier:   nopNotifier{},
		clock:      clock.RealClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes the state machine:
//
//	START -> WAIT_STORAGE_READY -> CLASSIFY -> END
//	                                        -> LOOP_GUARD -> REBOOT
//	                                                      -> DRAIN -> FINALIZE -> END
//
// END clears the crash store whatever happened before it. REBOOT is
// terminal: the store is left as is and nothing else runs. A storage wait
// that fails or is canceled is the only other exit that skips END; it
// returns before CLASSIFY and leaves the crash store for the next boot.
func (c *Controller) Run(ctx context.Context) (*Result, error) {
	res := &Result{}
	defer func() {
		runsTotal.WithLabelValues(string(res.Outcome)).Inc()
		rebootCounter.Set(float64(c.guard.Count()))
		c.notifier.Ready()
	}()

	c.enter(res, StateStart)
	if c.bootFail != nil {
		if _, err := c.bootFail.Capture(ctx); err != nil {
			slog.Warn("boot-failure capture failed", "error", err)
		}
	}

	done := c.enter(res, StateWaitStorage)
	err := c.storage.WaitForMount(ctx)
	done()
	if err != nil {
		res.Outcome = OutcomeStorageFailure
		return res, fmt.Errorf("crash log storage not ready: %w", err)
	}
	if c.dfx != nil {
		if _, err := c.dfx.Save(ctx); err != nil {
			slog.Warn("diagnostics partition snapshot failed", "error", err)
		}
	}

	done = c.enter(res, StateClassify)
	prev, prevErr := c.store.ReadHeader(ctx)
	res.Decision = c.classifier.Classify(ctx)
	done()
	if !res.Decision.Save() {
		res.Outcome = OutcomeNoSave
		c.end(ctx, res)
		return res, nil
	}

	done = c.enter(res, StateLoopGuard)
	selfTriggered := prevErr == nil && prev.SelfTriggered()
	action := c.guard.CheckAndMaybeRecover(ctx, selfTriggered)
	done()
	if action == loopguard.RebootToFallback {
		c.enter(res, StateReboot)
		res.Outcome = OutcomeRebooted
		return res, nil
	}

	err = c.collect(ctx, res, prev)
	c.end(ctx, res)
	return res, err
}

// collect runs DRAIN and FINALIZE. The saving guard is released on every path.
// Cancellation of ctx ends the drain early; whatever was drained is still
// sealed, so FINALIZE runs on a context that is never canceled.
func (c *Controller) collect(ctx context.Context, res *Result, prev crashstore.Header) error {
	info := res.Decision.Info

	done := c.enter(res, StateDrain)
	archive, err := c.finalizer.CreateArchive(ctx)
	if err != nil {
		done()
		res.Outcome = OutcomePathFailure
		return err
	}
	res.Archive = archive

	guard, err := c.finalizer.BeginSaving(ctx)
	if err != nil {
		slog.Warn("continuing without saving flag", "error", err)
	}
	defer func() { _ = guard.Release(ctx) }()

	res.Drain = c.drainer.Drain(ctx, archive.Dir, info)
	done()
	drainRounds.Set(float64(res.Drain.Rounds))
	remainingModules.Set(float64(res.Drain.Remaining.Len()))

	done = c.enter(res, StateFinalize)
	defer done()

	fctx := context.WithoutCancel(ctx)
	if err := c.finalizer.WriteBaseline(fctx, archive, prev); err != nil {
		slog.Warn("baseline snapshot failed", "error", err)
	}
	res.Report = report.New(c.version, res.Decision, res.Drain, archive.Name, archive.Dir)
	if err := c.finalizer.WriteReport(fctx, archive, res.Report); err != nil {
		slog.Warn("incident report not written", "error", err)
	}
	if err := c.finalizer.Complete(fctx, archive); err != nil {
		res.Outcome = OutcomeFinalizeFailure
		return err
	}
	_ = guard.Release(fctx)

	res.Outcome = OutcomeSaved
	if res.Drain.Partial() {
		res.Outcome = OutcomePartial
	}

	if _, err := c.finalizer.Retain(fctx, archive.Name); err != nil {
		slog.Warn("archive retention failed", "error", err)
	}
	if c.publisher != nil {
		if err := c.publisher.Publish(ctx, res.Report, archive.Dir); err != nil {
			slog.Warn("report publishing failed", "error", err)
		}
	}
	return nil
}

// end clears the crash store. Cancellation of ctx does not prevent it.
func (c *Controller) end(ctx context.Context, res *Result) {
	c.enter(res, StateEnd)
	if err := c.store.Clear(context.WithoutCancel(ctx)); err != nil {
		slog.Error("failed to clear crash store", "error", err)
	}
	slog.Info("boot check finished", "outcome", string(res.Outcome))
}

// enter records the transition and returns a func that observes the time spent.
func (c *Controller) enter(res *Result, s State) func() {
	res.States = append(res.States, s)
	c.notifier.Status(s)
	slog.Debug("state", "state", string(s))

	start := c.clock.Now()
	return func() {
		stageDuration.WithLabelValues(string(s)).Observe(c.clock.Since(start).Seconds())
	}
}
