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

package finalizer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/NVIDIA/bootcheck/pkg/crashstore"
	"github.com/NVIDIA/bootcheck/pkg/defaults"
	"github.com/NVIDIA/bootcheck/pkg/errors"
	"github.com/NVIDIA/bootcheck/pkg/header"
	"github.com/NVIDIA/bootcheck/pkg/report"
	"github.com/NVIDIA/bootcheck/pkg/serializer"
)

// Well-known archive entries.
const (
	DoneMarker       = "DONE"
	BaselineFileName = "last_baseinfo.yaml"
	ChecksumFileName = "checksums.txt"
	CleartextName    = "report.txt"
)

const archiveTimeLayout = "20060102T150405Z"

// Storage is the filesystem capability archives are written through.
type Storage interface {
	CreatePath(ctx context.Context, name string) (string, error)
	WriteFile(ctx context.Context, dir, name string, data []byte) error
	WriteMarker(ctx context.Context, dir, name string) error
	Sync(ctx context.Context) error
}

// Archive is a crash archive directory created for the current incident.
type Archive struct {
	Name string
	Dir  string
}

// Finalizer creates crash archives and brings them to a durable, complete state.
type Finalizer struct {
	root            string
	storage         Storage
	store           crashstore.Store
	version         string
	saveBaseline    bool
	blockingAllowed bool
	maxCount        int
	maxBytes        int64
	clock           clock.PassiveClock
	newID           func() string
}

// Option configures a Finalizer.
type Option func(*Finalizer)

// WithVersion stamps documents with the binary version.
func WithVersion(v string) Option {
	return func(f *Finalizer) {
		f.version = v
	}
}

// WithBaseline enables the previous-session header snapshot.
func WithBaseline(enabled bool) Option {
	return func(f *Finalizer) {
		f.saveBaseline = enabled
	}
}

// WithBlockingAllowed controls whether Complete flushes filesystem buffers.
func WithBlockingAllowed(allowed bool) Option {
	return func(f *Finalizer) {
		f.blockingAllowed = allowed
	}
}

// WithRetention bounds the archives kept under the root. Zero disables a limit.
func WithRetention(maxCount int, maxBytes int64) Option {
	return func(f *Finalizer) {
		f.maxCount = maxCount
		f.maxBytes = maxBytes
	}
}

// WithClock sets the clock used for archive names.
func WithClock(c clock.PassiveClock) Option {
	return func(f *Finalizer) {
		f.clock = c
	}
}

// WithIDFunc replaces the archive id generator.
func WithIDFunc(fn func() string) Option {
	return func(f *Finalizer) {
		f.newID = fn
	}
}

// New creates a Finalizer writing archives under root through storage.
func New(root string, storage Storage, store crashstore.Store, opts ...Option) *Finalizer {
	f := &Finalizer{
		root:            root,
		storage:         storage,
		store:           store,
		blockingAllowed: true,
		maxCount:        defaults.ArchiveMaxCount,
		maxBytes:        defaults.ArchiveMaxBytes,
		clock:           clock.RealClock{},
		newID:           uuid.NewString,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateArchive creates the directory for the current incident. Any failure
// is a PATH_CREATION error and aborts the cycle.
func (f *Finalizer) CreateArchive(ctx context.Context) (*Archive, error) {
	name := fmt.Sprintf("%s-%s", f.clock.Now().UTC().Format(archiveTimeLayout), f.newID())
	dir, err := f.storage.CreatePath(ctx, name)
	if err != nil {
		if errors.IsCode(err, errors.ErrCodePathCreation) {
			return nil, err
		}
		return nil, errors.WrapWithContext(errors.ErrCodePathCreation, "failed to create archive", err,
			map[string]any{"name": name})
	}
	slog.Info("crash archive created", "name", name, "dir", dir)
	return &Archive{Name: name, Dir: dir}, nil
}

// SavingGuard marks the crash store as saving for the lifetime of a cycle.
type SavingGuard struct {
	store crashstore.Store
	once  sync.Once
	err   error
}

// BeginSaving marks the cycle as started and the archive as in progress.
// The returned guard is always usable, even when the store write failed.
func (f *Finalizer) BeginSaving(ctx context.Context) (*SavingGuard, error) {
	g := &SavingGuard{store: f.store}
	err := crashstore.Update(ctx, f.store, func(h *crashstore.Header) {
		h.Saving = true
		h.Base.StartFlag = crashstore.StartInProgress
		h.Base.SavefileFlag = crashstore.SaveNotDone
	})
	if err != nil {
		return g, fmt.Errorf("failed to mark crash store as saving: %w", err)
	}
	return g, nil
}

// Release clears the saving flag. It runs at most once and ignores
// cancellation of ctx so that it also works on shutdown paths.
func (g *SavingGuard) Release(ctx context.Context) error {
	g.once.Do(func() {
		ctx = context.WithoutCancel(ctx)
		g.err = crashstore.Update(ctx, g.store, func(h *crashstore.Header) {
			h.Saving = false
		})
		if g.err != nil {
			slog.Error("failed to release saving flag", "error", g.err)
		}
	})
	return g.err
}

// Baseline is the snapshot of the crash-store header as found at boot.
type Baseline struct {
	header.Header `json:",inline" yaml:",inline"`

	CrashStore crashstore.Header `json:"crashStore" yaml:"crashStore"`
}

// WriteBaseline stores prev in the archive when baseline snapshots are enabled.
func (f *Finalizer) WriteBaseline(ctx context.Context, a *Archive, prev crashstore.Header) error {
	if !f.saveBaseline {
		return nil
	}
	doc := &Baseline{
		Header: *header.New(header.KindBaseline, f.version,
			header.WithTimestamp(f.clock.Now()),
			header.WithMetadata("archive", a.Name)),
		CrashStore: prev,
	}
	data, err := serializer.Marshal(serializer.FormatYAML, doc)
	if err != nil {
		return err
	}
	if err := f.storage.WriteFile(ctx, a.Dir, BaselineFileName, data); err != nil {
		return fmt.Errorf("failed to write baseline: %w", err)
	}
	return nil
}

// WriteReport stores r in the archive.
func (f *Finalizer) WriteReport(ctx context.Context, a *Archive, r *report.Report) error {
	data, err := r.Marshal()
	if err != nil {
		return err
	}
	if err := f.storage.WriteFile(ctx, a.Dir, report.FileName, data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// Complete seals the archive: checksums, the DONE marker, then the crash
// store completion flags. The cleartext rendering is left pending for the
// next boot. Buffers are flushed only when blocking is allowed.
func (f *Finalizer) Complete(ctx context.Context, a *Archive) error {
	sums, err := checksums(ctx, a.Dir)
	if err != nil {
		return err
	}
	if err := f.storage.WriteFile(ctx, a.Dir, ChecksumFileName, sums); err != nil {
		return fmt.Errorf("failed to write checksums: %w", err)
	}
	if err := f.storage.WriteMarker(ctx, a.Dir, DoneMarker); err != nil {
		return fmt.Errorf("failed to write %s marker: %w", DoneMarker, err)
	}

	err = crashstore.Update(ctx, f.store, func(h *crashstore.Header) {
		h.Base.StartFlag = crashstore.StartDone
		h.Base.SavefileFlag = crashstore.SaveDone
		h.Cleartext.SavefileFlag = crashstore.SaveNotDone
	})
	if err != nil {
		return fmt.Errorf("failed to record archive completion: %w", err)
	}

	if f.blockingAllowed {
		if err := f.storage.Sync(ctx); err != nil {
			return fmt.Errorf("failed to sync storage: %w", err)
		}
	} else {
		slog.Debug("skipping storage sync, blocking not allowed")
	}

	slog.Info("crash archive complete", "name", a.Name)
	return nil
}
