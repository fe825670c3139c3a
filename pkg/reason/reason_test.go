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

package reason

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/NVIDIA/bootcheck/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeClass(t *testing.T) {
	tests := []struct {
		code Code
		want Class
	}{
		{0, ClassNormal},
		{Label1 - 1, ClassNormal},
		{Label1, ClassSimpleReset},
		{Label2, ClassSimpleReset},
		{Label3 - 1, ClassSimpleReset},
		{Label3, ClassAbnormal},
		{Label4 - 1, ClassAbnormal},
		{Label4, ClassNormalVariant},
		{Label5 - 1, ClassNormalVariant},
		{Label5, ClassAbnormal},
		{0xFFFF, ClassAbnormal},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.Class())
		})
	}
}

func TestParseCode(t *testing.T) {
	c, err := ParseCode("0x24")
	require.NoError(t, err)
	assert.Equal(t, Label2, c)

	c, err = ParseCode(" 20 ")
	require.NoError(t, err)
	assert.Equal(t, Label1, c)

	_, err = ParseCode("zz")
	assert.Error(t, err)
}

func writeCmdline(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cmdline")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestCmdlineRead(t *testing.T) {
	src := NewCmdline()
	src.Path = writeCmdline(t, "ro quiet reboot_reason=0x30 exec_subtype=0x2\n")

	r, err := src.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Reason{Code: 0x30, Subtype: 2}, r)
}

func TestCmdlineReadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    errors.ErrorCode
	}{
		{"missing reason", "ro quiet", errors.ErrCodeNotFound},
		{"malformed reason", "reboot_reason=abc", errors.ErrCodeInvalidRequest},
		{"malformed subtype", "reboot_reason=0x30 exec_subtype=x", errors.ErrCodeInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewCmdline()
			src.Path = writeCmdline(t, tt.content)
			_, err := src.Read(context.Background())
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.code))
		})
	}

	src := NewCmdline()
	src.Path = filepath.Join(t.TempDir(), "nope")
	_, err := src.Read(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
}

func TestStatic(t *testing.T) {
	r, err := Static{Code: Label3, Subtype: 9}.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Label3, r.Code)
	assert.Equal(t, uint32(9), r.Subtype)
}
