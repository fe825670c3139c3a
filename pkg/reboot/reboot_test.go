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

package reboot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStarter struct {
	started []string
	result  string
	err     error
	closed  bool
}

func (f *fakeStarter) StartUnitContext(_ context.Context, name, mode string, ch chan<- string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.started = append(f.started, name+"/"+mode)
	ch <- f.result
	return 1, nil
}

func (f *fakeStarter) Close() { f.closed = true }

func newSystemd(t *testing.T, f *fakeStarter) *Systemd {
	return &Systemd{
		ParamPath: filepath.Join(t.TempDir(), "run", "reboot-param"),
		Dial:      func(context.Context) (UnitStarter, error) { return f, nil },
	}
}

func TestSystemdRebootTo(t *testing.T) {
	f := &fakeStarter{result: "done"}
	s := newSystemd(t, f)

	require.NoError(t, s.RebootTo(context.Background(), "erecovery"))
	assert.Equal(t, []string{"reboot.target/replace-irreversibly"}, f.started)
	assert.True(t, f.closed)

	b, err := os.ReadFile(s.ParamPath)
	require.NoError(t, err)
	assert.Equal(t, "erecovery\n", string(b))
}

func TestSystemdRebootToFailures(t *testing.T) {
	s := newSystemd(t, &fakeStarter{result: "failed"})
	assert.Error(t, s.RebootTo(context.Background(), "erecovery"))

	s = newSystemd(t, &fakeStarter{err: errors.New("denied")})
	assert.Error(t, s.RebootTo(context.Background(), "erecovery"))

	s = newSystemd(t, nil)
	s.Dial = func(context.Context) (UnitStarter, error) { return nil, errors.New("no bus") }
	assert.Error(t, s.RebootTo(context.Background(), "erecovery"))
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	require.NoError(t, r.RebootTo(context.Background(), "a"))
	r.Err = errors.New("x")
	assert.Error(t, r.RebootTo(context.Background(), "b"))
	assert.Equal(t, []string{"a", "b"}, r.Calls())
}
