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

package classifier

import (
	"context"
	"log/slog"

	"github.com/NVIDIA/bootcheck/pkg/crashstore"
	"github.com/NVIDIA/bootcheck/pkg/incident"
	"github.com/NVIDIA/bootcheck/pkg/reason"
)

// CleartextFinalizer renders the last completed archive into human-readable form.
type CleartextFinalizer interface {
	FinalizeCleartext(ctx context.Context) error
}

// LogSaver keeps the maintenance dump of a crash whose archive is already
// complete. It decides from code whether anything needs saving.
type LogSaver interface {
	SaveLog(ctx context.Context, code reason.Code) error
}

// Classifier decides whether the previous session needs a crash archive.
type Classifier struct {
	reasons   reason.Source
	store     crashstore.Store
	cleartext CleartextFinalizer
	logSaver  LogSaver
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithCleartextFinalizer sets the finalizer invoked when only cleartext rendering is pending.
func WithCleartextFinalizer(f CleartextFinalizer) Option {
	return func(c *Classifier) {
		c.cleartext = f
	}
}

// WithLogSaver sets the saver run for a completed prior cycle, ahead of
// cleartext rendering.
func WithLogSaver(s LogSaver) Option {
	return func(c *Classifier) {
		c.logSaver = s
	}
}

// New returns a Classifier reading reasons from src and flags from store.
func New(src reason.Source, store crashstore.Store, opts ...Option) *Classifier {
	c := &Classifier{reasons: src, store: store}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns the decision for the previous session. It never fails:
// anything it cannot determine is treated as nothing to save.
func (c *Classifier) Classify(ctx context.Context) incident.Decision {
	r, err := c.reasons.Read(ctx)
	if err != nil {
		slog.Warn("reboot reason unavailable, treating as normal boot", "error", err)
		return incident.Decision{Outcome: incident.NoSave}
	}

	class := r.Code.Class()
	slog.Info("reboot reason", "code", r.Code.String(), "subtype", r.Subtype, "class", class.String())

	switch class {
	case reason.ClassNormal, reason.ClassNormalVariant:
		return incident.Decision{Outcome: incident.NoSave}
	case reason.ClassSimpleReset:
		return incident.Decision{Outcome: incident.SaveSimple, Info: incident.New(r)}
	}

	h, err := c.store.ReadHeader(ctx)
	if err != nil {
		slog.Error("crash store unreadable, skipping collection", "error", err)
		return incident.Decision{Outcome: incident.NoSave}
	}

	if !h.Base.Complete() {
		info := incident.New(r)
		info.ModID = incident.ModIDLastSaveNotDone
		slog.Warn("previous collection cycle did not finish, resuming",
			"startFlag", h.Base.StartFlag.String(),
			"savefileFlag", h.Base.SavefileFlag.String(),
			"modid", info.ModID.String())
		return incident.Decision{Outcome: incident.SavePriorIncomplete, Info: info}
	}

	if c.logSaver != nil {
		if err := c.logSaver.SaveLog(ctx, r.Code); err != nil {
			slog.Warn("maintenance dump not saved", "code", r.Code.String(), "error", err)
		}
	}

	if h.Cleartext.SavefileFlag != crashstore.SaveDone {
		if c.cleartext == nil {
			slog.Debug("cleartext pending but no finalizer configured")
		} else if err := c.cleartext.FinalizeCleartext(ctx); err != nil {
			slog.Warn("cleartext finalization failed", "error", err)
		}
	}

	return incident.Decision{Outcome: incident.NoSave}
}
