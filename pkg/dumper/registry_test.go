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
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/NVIDIA/bootcheck/pkg/incident"
	"github.com/NVIDIA/bootcheck/pkg/module"
	"github.com/NVIDIA/bootcheck/pkg/reason"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okDumper(name string, mods ...module.ID) Func {
	return Func{ID: name, Covers: module.NewSet(mods...), Fn: func(_ context.Context, job Job) error {
		return os.WriteFile(filepath.Join(job.Dir, "dump.bin"), []byte(job.Modules.String()), 0o600)
	}}
}

func failDumper(name string, mods ...module.ID) Func {
	return Func{ID: name, Covers: module.NewSet(mods...), Fn: func(context.Context, Job) error {
		return errors.New("boom")
	}}
}

func request(t *testing.T, mods ...module.ID) Request {
	info := incident.New(reason.Reason{Code: reason.Label1, Subtype: 1})
	return NewRequest(info, module.NewSet(mods...), t.TempDir())
}

func TestRegistryCurrentRegistered(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, module.Mask(0), r.CurrentRegistered())

	require.NoError(t, r.Register(okDumper("a", module.AP)))
	require.NoError(t, r.Register(okDumper("loc", module.Location, module.WLAN)))
	assert.Equal(t, module.NewSet(module.AP, module.Location, module.WLAN).Mask(), r.CurrentRegistered())

	assert.Error(t, r.Register(okDumper("a", module.CP)))
	assert.Equal(t, module.NewSet(module.AP, module.Location, module.WLAN).Mask(), r.CurrentRegistered())
}

func TestRegistryNotifyDump(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(okDumper("ap", module.AP)))
	require.NoError(t, r.Register(failDumper("loc", module.Location)))
	require.NoError(t, r.Register(okDumper("wlan", module.WLAN, module.CP)))

	req := request(t, module.AP, module.Location, module.WLAN)
	got := module.FromMask(r.NotifyDump(context.Background(), req))

	assert.Equal(t, module.NewSet(module.AP, module.WLAN), got)

	b, err := os.ReadFile(filepath.Join(req.Path, "wlan", "dump.bin"))
	require.NoError(t, err)
	assert.Equal(t, "{wlan}", string(b), "job carries only requested modules")
	assert.FileExists(t, filepath.Join(req.Path, "ap", "dump.bin"))
}

func TestRegistryNotifyDumpNoMatch(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(okDumper("ap", module.AP)))
	assert.Equal(t, module.Mask(0), r.NotifyDump(context.Background(), request(t, module.ISP)))
}

func TestRegistryOverlappingDumpers(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(failDumper("primary", module.AP)))
	require.NoError(t, r.Register(okDumper("fallback", module.AP)))

	got := r.NotifyDump(context.Background(), request(t, module.AP))
	assert.Equal(t, module.NewSet(module.AP).Mask(), got)
}

func TestRegistryDumpTimeout(t *testing.T) {
	r := NewRegistry(WithDumpTimeout(20 * time.Millisecond))
	require.NoError(t, r.Register(Func{ID: "slow", Covers: module.NewSet(module.AP), Fn: func(ctx context.Context, _ Job) error {
		<-ctx.Done()
		return ctx.Err()
	}}))
	assert.Equal(t, module.Mask(0), r.NotifyDump(context.Background(), request(t, module.AP)))
}

func TestRegistryConcurrencyLimit(t *testing.T) {
	r := NewRegistry(WithConcurrency(1))
	var running, peak int32
	mk := func(name string, id module.ID) Func {
		return Func{ID: name, Covers: module.NewSet(id), Fn: func(context.Context, Job) error {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return nil
		}}
	}
	require.NoError(t, r.Register(mk("a", module.AP)))
	require.NoError(t, r.Register(mk("b", module.CP)))
	require.NoError(t, r.Register(mk("c", module.ISP)))

	got := r.NotifyDump(context.Background(), request(t, module.AP, module.CP, module.ISP))
	assert.Equal(t, 3, module.FromMask(got).Len())
	assert.Equal(t, int32(1), atomic.LoadInt32(&peak))
}

func TestRegistryDirectoryFailure(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(okDumper("ap", module.AP)))

	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	req := request(t, module.AP)
	req.Path = file
	assert.Equal(t, module.Mask(0), r.NotifyDump(context.Background(), req))
}
