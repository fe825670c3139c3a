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
	"fmt"
	"strconv"
	"strings"
)

// Code is a reboot-reason code as reported by the bootloader.
type Code uint32

// Range boundaries of the reboot-reason code space.
const (
	// Label1 is the first abnormal reason. Anything below is a normal boot.
	Label1 Code = 0x14
	// Label2 starts the second group of simple resets.
	Label2 Code = 0x24
	// Label3 ends the simple-reset range [Label1, Label3).
	Label3 Code = 0x2C
	// Label4 starts the normal-variant range [Label4, Label5).
	Label4 Code = 0x4A
	// Label5 ends the normal-variant range.
	Label5 Code = 0x65
)

// Class groups reason codes by how the classifier treats them.
type Class int

const (
	// ClassNormal is an orderly boot. Nothing to save.
	ClassNormal Class = iota
	// ClassNormalVariant is a recognized benign reboot inside the abnormal space.
	ClassNormalVariant
	// ClassSimpleReset always needs a save regardless of prior state.
	ClassSimpleReset
	// ClassAbnormal needs a save only when the previous cycle is incomplete.
	ClassAbnormal
)

func (c Class) String() string {
	switch c {
	case ClassNormal:
		return "normal"
	case ClassNormalVariant:
		return "normal-variant"
	case ClassSimpleReset:
		return "simple-reset"
	case ClassAbnormal:
		return "abnormal"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// Class returns the range the code falls in.
func (c Code) Class() Class {
	switch {
	case c < Label1:
		return ClassNormal
	case c < Label3:
		return ClassSimpleReset
	case c >= Label4 && c < Label5:
		return ClassNormalVariant
	default:
		return ClassAbnormal
	}
}

// String renders the code as hex.
func (c Code) String() string {
	return fmt.Sprintf("0x%x", uint32(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c Code) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Reason is the boot reason reported for the previous session.
type Reason struct {
	Code    Code   `json:"code" yaml:"code"`
	Subtype uint32 `json:"subtype" yaml:"subtype"`
}

// ParseCode parses a decimal or 0x-prefixed hex code.
func ParseCode(s string) (Code, error) {
	v, err := parseUint32(s)
	if err != nil {
		return 0, fmt.Errorf("invalid reboot reason %q: %w", s, err)
	}
	return Code(v), nil
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
