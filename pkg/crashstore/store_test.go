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

package crashstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/NVIDIA/bootcheck/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	h := Header{
		Reserve:   UnexpectedRebootMarker,
		Base:      BaseInfo{StartFlag: StartInProgress, SavefileFlag: SaveNotDone},
		Cleartext: Cleartext{SavefileFlag: SaveDone},
		Saving:    true,
	}
	b := Encode(h)
	require.Len(t, b, Size)

	got, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, h, got)
	assert.True(t, got.SelfTriggered())
	assert.False(t, got.Base.Complete())
}

func TestDecodeRejects(t *testing.T) {
	good := Encode(Clean())

	badMagic := append([]byte(nil), good...)
	badMagic[0] = 0

	badCRC := append([]byte(nil), good...)
	badCRC[12] ^= 1

	badVersion := append([]byte(nil), good...)
	badVersion[4] = 9

	tests := []struct {
		name string
		raw  []byte
	}{
		{"empty", nil},
		{"truncated", good[:10]},
		{"bad magic", badMagic},
		{"bad version", badVersion},
		{"bad crc", badCRC},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.raw)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeConfigurationAbsent))
		})
	}
}

func TestClean(t *testing.T) {
	c := Clean()
	assert.True(t, c.Base.Complete())
	assert.Equal(t, SaveDone, c.Cleartext.SavefileFlag)
	assert.False(t, c.Saving)
	assert.False(t, c.SelfTriggered())

	dirty := Header{
		Reserve:   UnexpectedRebootMarker,
		Base:      BaseInfo{StartFlag: StartInProgress},
		Cleartext: Cleartext{SavefileFlag: SaveNotDone},
		Saving:    true,
	}
	got := Cleared(dirty)
	assert.True(t, got.Base.Complete())
	assert.False(t, got.Saving)
	assert.Zero(t, got.Reserve)
	assert.Equal(t, SaveNotDone, got.Cleartext.SavefileFlag)
}

func TestMemory(t *testing.T) {
	ctx := context.Background()

	var zero Memory
	_, err := zero.ReadHeader(ctx)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConfigurationAbsent))

	m := NewMemory(Header{Reserve: UnexpectedRebootMarker, Saving: true})
	h, err := m.ReadHeader(ctx)
	require.NoError(t, err)
	assert.True(t, h.SelfTriggered())

	require.NoError(t, m.Clear(ctx))
	h, err = m.ReadHeader(ctx)
	require.NoError(t, err)
	assert.False(t, h.SelfTriggered())
	assert.False(t, h.Saving)
	assert.True(t, h.Base.Complete())
	assert.Equal(t, SaveNotDone, h.Cleartext.SavefileFlag, "cleartext state survives clear")

	require.NoError(t, zero.Clear(ctx))
	h, err = zero.ReadHeader(ctx)
	require.NoError(t, err)
	assert.Equal(t, Clean(), h)

	m.Corrupt()
	_, err = m.ReadHeader(ctx)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConfigurationAbsent))
}

func TestFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "rrecord")

	f := NewFile(path, 0)
	_, err := f.ReadHeader(ctx)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConfigurationAbsent))

	want := Header{Base: BaseInfo{StartFlag: StartDone, SavefileFlag: SaveNotDone}}
	require.NoError(t, f.WriteHeader(ctx, want))
	got, err := f.ReadHeader(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, f.Clear(ctx))
	got, err = f.ReadHeader(ctx)
	require.NoError(t, err)
	assert.Equal(t, Cleared(want), got)
}

func TestFileOffset(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "part")
	require.NoError(t, os.WriteFile(path, make([]byte, 4096), 0o600))

	f := NewFile(path, 1024)
	_, err := f.ReadHeader(ctx)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConfigurationAbsent))

	require.NoError(t, MarkUnexpectedReboot(ctx, f))
	got, err := f.ReadHeader(ctx)
	require.NoError(t, err)
	assert.True(t, got.SelfTriggered())
	assert.True(t, got.Base.Complete())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(4096), info.Size())
}

func TestUpdatePreservesFields(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(Header{Base: BaseInfo{StartFlag: StartDone, SavefileFlag: SaveDone}})

	require.NoError(t, Update(ctx, m, func(h *Header) { h.Saving = true }))
	h, err := m.ReadHeader(ctx)
	require.NoError(t, err)
	assert.True(t, h.Saving)
	assert.True(t, h.Base.Complete())
}
