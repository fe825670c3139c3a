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
	"fmt"

	"github.com/NVIDIA/bootcheck/pkg/errors"
	"github.com/NVIDIA/bootcheck/pkg/parser"
)

// Source reports the boot reason of the previous session.
type Source interface {
	Read(ctx context.Context) (Reason, error)
}

// Static is a Source that always returns the same reason.
type Static Reason

// Read implements Source.
func (s Static) Read(context.Context) (Reason, error) {
	return Reason(s), nil
}

// Default command line keys.
const (
	DefaultCmdlinePath = "/proc/cmdline"
	DefaultCodeKey     = "reboot_reason"
	DefaultSubtypeKey  = "exec_subtype"
)

// Cmdline reads the reason from kernel command line parameters set by the bootloader.
type Cmdline struct {
	Path       string
	CodeKey    string
	SubtypeKey string
}

// NewCmdline returns a Cmdline source with default path and keys.
func NewCmdline() *Cmdline {
	return &Cmdline{
		Path:       DefaultCmdlinePath,
		CodeKey:    DefaultCodeKey,
		SubtypeKey: DefaultSubtypeKey,
	}
}

// Read implements Source. A missing code key is reported as ErrCodeNotFound.
// A missing subtype is zero.
func (c *Cmdline) Read(ctx context.Context) (Reason, error) {
	if err := ctx.Err(); err != nil {
		return Reason{}, err
	}

	params, err := parser.New(parser.WithFields()).ReadMap(c.Path)
	if err != nil {
		return Reason{}, errors.Wrap(errors.ErrCodeNotFound, "failed to read kernel command line", err)
	}

	raw, ok := params[c.CodeKey]
	if !ok {
		return Reason{}, errors.NewWithContext(errors.ErrCodeNotFound, "reboot reason not present on command line",
			map[string]any{"key": c.CodeKey, "path": c.Path})
	}

	code, err := ParseCode(raw)
	if err != nil {
		return Reason{}, errors.Wrap(errors.ErrCodeInvalidRequest, "malformed reboot reason", err)
	}

	r := Reason{Code: code}
	if rawSub, ok := params[c.SubtypeKey]; ok {
		sub, err := parseUint32(rawSub)
		if err != nil {
			return Reason{}, errors.Wrap(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("malformed %s", c.SubtypeKey), err)
		}
		r.Subtype = sub
	}
	return r, nil
}
