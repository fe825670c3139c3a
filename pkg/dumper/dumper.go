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

	"github.com/NVIDIA/bootcheck/pkg/incident"
	"github.com/NVIDIA/bootcheck/pkg/module"
	"github.com/NVIDIA/bootcheck/pkg/reason"
)

// Request is a dump notification as it crosses the registry boundary.
// Modules are carried in their bit-encoded wire form.
type Request struct {
	ModID   incident.ModID
	Mask    module.Mask
	Type    reason.Code
	Subtype uint32
	Core    module.Mask
	// Path is the incident archive directory.
	Path string
}

// NewRequest builds the wire request for info and archive path.
func NewRequest(info *incident.Info, mask module.Set, path string) Request {
	return Request{
		ModID:   info.ModID,
		Mask:    mask.Mask(),
		Type:    info.Type,
		Subtype: info.Subtype,
		Core:    info.Core.Mask(),
		Path:    path,
	}
}

// Job is what an individual dumper is asked to do.
type Job struct {
	ModID   incident.ModID
	Modules module.Set
	Core    module.Set
	Type    reason.Code
	Subtype uint32
	// Dir is the dumper's private output directory inside the archive.
	Dir string
}

// Dumper writes the diagnostic state of one or more modules.
type Dumper interface {
	// Name is unique within a registry and names the output directory.
	Name() string
	// Modules returns the modules this dumper is responsible for.
	Modules() module.Set
	// Dump writes the dump into job.Dir. A nil error marks every
	// requested module the dumper covers as completed.
	Dump(ctx context.Context, job Job) error
}

// Func adapts a function to the Dumper interface.
type Func struct {
	ID     string
	Covers module.Set
	Fn     func(ctx context.Context, job Job) error
}

// Name implements Dumper.
func (f Func) Name() string { return f.ID }

// Modules implements Dumper.
func (f Func) Modules() module.Set { return f.Covers }

// Dump implements Dumper.
func (f Func) Dump(ctx context.Context, job Job) error { return f.Fn(ctx, job) }
