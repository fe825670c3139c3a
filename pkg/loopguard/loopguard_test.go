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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/NVIDIA/bootcheck/pkg/defaults"
	"github.com/NVIDIA/bootcheck/pkg/reboot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	dir      string
	cfg      Config
	rebooter *reboot.Recorder
}

func newEnv(t *testing.T, ceiling int) *env {
	dir := t.TempDir()
	return &env{
		dir: dir,
		cfg: Config{
			CounterPath: filepath.Join(dir, "reboot_times.yaml"),
			ReasonPath:  filepath.Join(dir, "erecovery_reason"),
			BootIDPath:  filepath.Join(dir, "boot_id"),
			Ceiling:     ceiling,
		},
		rebooter: &reboot.Recorder{},
	}
}

func (e *env) boot(t *testing.T, id string) {
	require.NoError(t, os.WriteFile(e.cfg.BootIDPath, []byte(id+"\n"), 0o600))
}

func (e *env) guard() *Guard {
	return New(e.cfg, e.rebooter)
}

func TestCounterIncrementsUntilCeiling(t *testing.T) {
	e := newEnv(t, 3)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		e.boot(t, fmt.Sprintf("boot-%d", i))
		assert.Equal(t, Continue, e.guard().CheckAndMaybeRecover(ctx, true))
		assert.Equal(t, i, e.guard().Count())
	}
	assert.Empty(t, e.rebooter.Calls())

	e.boot(t, "fourth")
	assert.Equal(t, RebootToFallback, e.guard().CheckAndMaybeRecover(ctx, true))
	assert.Equal(t, []string{defaults.FallbackTarget}, e.rebooter.Calls())
	assert.Equal(t, 0, e.guard().Count())

	tag, err := os.ReadFile(e.cfg.ReasonPath)
	require.NoError(t, err)
	assert.Equal(t, defaults.ErecoveryReasonTag+"\n", string(tag))
}

func TestCounterAboveCeilingRebootsOnce(t *testing.T) {
	e := newEnv(t, 2)
	ctx := context.Background()
	require.NoError(t, writeCounter(e.cfg.CounterPath, Counter{Count: 2, BootID: "old"}))
	e.boot(t, "new")

	assert.Equal(t, RebootToFallback, e.guard().CheckAndMaybeRecover(ctx, true))
	assert.Len(t, e.rebooter.Calls(), 1)
	assert.Equal(t, 0, e.guard().Count())
}

func TestRebootFailureDropsFallbackReason(t *testing.T) {
	e := newEnv(t, 1)
	e.rebooter.Err = errors.New("no bus")
	require.NoError(t, writeCounter(e.cfg.CounterPath, Counter{Count: 1}))

	assert.Equal(t, Continue, e.guard().CheckAndMaybeRecover(context.Background(), true))
	assert.NoFileExists(t, e.cfg.ReasonPath, "no fallback tag for a reboot that never happened")
}

func TestNonSelfTriggeredResets(t *testing.T) {
	e := newEnv(t, 5)
	require.NoError(t, writeCounter(e.cfg.CounterPath, Counter{Count: 4}))
	e.boot(t, "x")

	assert.Equal(t, Continue, e.guard().CheckAndMaybeRecover(context.Background(), false))
	assert.Equal(t, 0, e.guard().Count())
	assert.Empty(t, e.rebooter.Calls())
	assert.NoFileExists(t, e.cfg.ReasonPath)
}

func TestSameBootCountedOnce(t *testing.T) {
	e := newEnv(t, 5)
	e.boot(t, "same")

	e.guard().CheckAndMaybeRecover(context.Background(), true)
	e.guard().CheckAndMaybeRecover(context.Background(), true)
	assert.Equal(t, 1, e.guard().Count())
}

func TestMissingBootIDAlwaysCounts(t *testing.T) {
	e := newEnv(t, 5)
	e.guard().CheckAndMaybeRecover(context.Background(), true)
	e.guard().CheckAndMaybeRecover(context.Background(), true)
	assert.Equal(t, 2, e.guard().Count())
}

func TestCorruptCounterReadsAsZero(t *testing.T) {
	e := newEnv(t, 5)
	require.NoError(t, os.WriteFile(e.cfg.CounterPath, []byte("count: [oops"), 0o600))
	e.boot(t, "b1")

	assert.Equal(t, 0, e.guard().Count())
	assert.Equal(t, Continue, e.guard().CheckAndMaybeRecover(context.Background(), true))
	assert.Equal(t, 1, e.guard().Count())

	require.NoError(t, os.WriteFile(e.cfg.CounterPath, []byte("count: -3\n"), 0o600))
	assert.Equal(t, 0, e.guard().Count())
}

func TestUnwritableCounterNeverBlocks(t *testing.T) {
	e := newEnv(t, 1)
	blocker := filepath.Join(e.dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))
	e.cfg.CounterPath = filepath.Join(blocker, "counter.yaml")

	assert.Equal(t, Continue, e.guard().CheckAndMaybeRecover(context.Background(), true))
	assert.Equal(t, Continue, e.guard().CheckAndMaybeRecover(context.Background(), false))
}

func TestRebootFailureContinues(t *testing.T) {
	e := newEnv(t, 1)
	e.rebooter.Err = errors.New("no bus")
	require.NoError(t, writeCounter(e.cfg.CounterPath, Counter{Count: 1}))

	assert.Equal(t, Continue, e.guard().CheckAndMaybeRecover(context.Background(), true))
	assert.Len(t, e.rebooter.Calls(), 1)
	assert.Equal(t, 0, e.guard().Count())
}

func TestDefaults(t *testing.T) {
	g := New(Config{}, &reboot.Recorder{})
	assert.Equal(t, defaults.MaxRebootTimes, g.cfg.Ceiling)
	assert.Equal(t, defaults.FallbackTarget, g.cfg.Target)
	assert.Equal(t, DefaultBootIDPath, g.cfg.BootIDPath)
}
