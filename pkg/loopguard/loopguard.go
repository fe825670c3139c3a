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

package loopguard

import (
	"context"
	"log/slog"
	"os"

	"github.com/NVIDIA/bootcheck/pkg/defaults"
	"github.com/NVIDIA/bootcheck/pkg/errors"
	"github.com/NVIDIA/bootcheck/pkg/reboot"
)

// Action is the guard's verdict.
type Action int

const (
	// Continue proceeds with dump collection.
	Continue Action = iota
	// RebootToFallback means a fallback reboot was requested. Nothing may follow it.
	RebootToFallback
)

func (a Action) String() string {
	if a == RebootToFallback {
		return "reboot-to-fallback"
	}
	return "continue"
}

// Config configures a Guard.
type Config struct {
	// CounterPath holds the persisted Counter.
	CounterPath string
	// ReasonPath receives the reason tag for the fallback boot stage.
	ReasonPath string
	// BootIDPath is read to avoid counting one boot twice.
	BootIDPath string
	// Ceiling is the highest count that still continues.
	Ceiling int
	// Target is the fallback boot target.
	Target string
	// ReasonTag is written to ReasonPath before the fallback reboot.
	ReasonTag string
}

// Guard tracks consecutive self-triggered crash reboots and diverts the
// device to the fallback target once they exceed the ceiling.
type Guard struct {
	cfg      Config
	rebooter reboot.Rebooter
}

// New returns a Guard. Zero-valued config fields take defaults.
func New(cfg Config, rebooter reboot.Rebooter) *Guard {
	if cfg.BootIDPath == "" {
		cfg.BootIDPath = DefaultBootIDPath
	}
	if cfg.Ceiling <= 0 {
		cfg.Ceiling = defaults.MaxRebootTimes
	}
	if cfg.Target == "" {
		cfg.Target = defaults.FallbackTarget
	}
	if cfg.ReasonTag == "" {
		cfg.ReasonTag = defaults.ErecoveryReasonTag
	}
	return &Guard{cfg: cfg, rebooter: rebooter}
}

// Count returns the persisted count. Unreadable counters read as zero.
func (g *Guard) Count() int {
	c, err := readCounter(g.cfg.CounterPath)
	if err != nil {
		return 0
	}
	return c.Count
}

// CheckAndMaybeRecover updates the counter for this boot and, past the
// ceiling, requests the fallback reboot. Counter persistence problems are
// logged and never block the boot.
func (g *Guard) CheckAndMaybeRecover(ctx context.Context, selfTriggered bool) Action {
	bootID := ReadBootID(g.cfg.BootIDPath)

	if !selfTriggered {
		g.persist(Counter{BootID: bootID})
		return Continue
	}

	c, err := readCounter(g.cfg.CounterPath)
	if err != nil {
		slog.Warn("reboot counter unreadable, starting from zero",
			"error", errors.Wrap(errors.ErrCodeCounterPersistence, "read failed", err))
		c = Counter{}
	}

	if bootID != "" && c.BootID == bootID {
		slog.Info("reboot already counted for this boot", "count", c.Count, "bootID", bootID)
	} else {
		c.Count++
		c.BootID = bootID
		g.persist(c)
	}

	slog.Info("self-triggered reboot", "count", c.Count, "ceiling", g.cfg.Ceiling)
	if c.Count <= g.cfg.Ceiling {
		return Continue
	}

	slog.Error("reboot loop detected, entering fallback target",
		"count", c.Count,
		"ceiling", g.cfg.Ceiling,
		"target", g.cfg.Target)

	if g.cfg.ReasonPath != "" {
		if err := writeFile(g.cfg.ReasonPath, []byte(g.cfg.ReasonTag+"\n")); err != nil {
			slog.Error("failed to record fallback reason", "error", err)
		}
	}
	g.persist(Counter{BootID: bootID})

	if err := g.rebooter.RebootTo(ctx, g.cfg.Target); err != nil {
		slog.Error("fallback reboot request failed, continuing boot", "target", g.cfg.Target, "error", err)
		g.clearReason()
		return Continue
	}
	return RebootToFallback
}

// clearReason drops the fallback tag of a reboot that did not happen.
func (g *Guard) clearReason() {
	if g.cfg.ReasonPath == "" {
		return
	}
	if err := os.Remove(g.cfg.ReasonPath); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to remove fallback reason", "path", g.cfg.ReasonPath, "error", err)
	}
}

func (g *Guard) persist(c Counter) {
	if err := writeCounter(g.cfg.CounterPath, c); err != nil {
		slog.Warn("failed to persist reboot counter",
			"error", errors.WrapWithContext(errors.ErrCodeCounterPersistence, "write failed", err,
				map[string]any{"path": g.cfg.CounterPath, "count": c.Count}))
	}
}
