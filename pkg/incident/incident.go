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

package incident

import (
	"fmt"

	"github.com/NVIDIA/bootcheck/pkg/module"
	"github.com/NVIDIA/bootcheck/pkg/reason"
)

// ModID identifies the kind of incident being collected.
type ModID uint32

// Incident identifiers.
const (
	// ModIDAbnormalReboot is a fresh abnormal reboot of the application processor.
	ModIDAbnormalReboot ModID = 0x80000024
	// ModIDLastSaveNotDone resumes a collection cycle the previous session did not finish.
	ModIDLastSaveNotDone ModID = 0x80000025
)

func (m ModID) String() string {
	switch m {
	case ModIDAbnormalReboot:
		return "abnormal-reboot"
	case ModIDLastSaveNotDone:
		return "last-save-not-done"
	default:
		return fmt.Sprintf("0x%08x", uint32(m))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m ModID) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Info describes one incident for the duration of a single boot. It is never persisted.
type Info struct {
	// Mask holds the modules whose dump is still outstanding.
	Mask module.Set
	// Core holds the modules that are part of the incident.
	Core    module.Set
	ModID   ModID
	Type    reason.Code
	Subtype uint32
}

// New returns the default incident for r: every AP module, generic abnormal reboot.
func New(r reason.Reason) *Info {
	return &Info{
		Mask:    module.AllAP,
		Core:    module.AllAP,
		ModID:   ModIDAbnormalReboot,
		Type:    r.Code,
		Subtype: r.Subtype,
	}
}

// Outcome is the kind of classifier decision.
type Outcome int

const (
	// NoSave means the previous session needs no collection.
	NoSave Outcome = iota
	// SaveSimple is a fresh incident from a simple reset.
	SaveSimple
	// SavePriorIncomplete resumes an interrupted collection.
	SavePriorIncomplete
)

func (o Outcome) String() string {
	switch o {
	case NoSave:
		return "no-save"
	case SaveSimple:
		return "save"
	case SavePriorIncomplete:
		return "save-prior-incomplete"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Decision is the classifier result. Info is nil when Outcome is NoSave.
type Decision struct {
	Outcome Outcome
	Info    *Info
}

// Save reports whether collection should run.
func (d Decision) Save() bool {
	return d.Outcome != NoSave && d.Info != nil
}
