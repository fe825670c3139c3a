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

package report

import (
	"fmt"

	"github.com/NVIDIA/bootcheck/pkg/header"
	"github.com/NVIDIA/bootcheck/pkg/incident"
	"github.com/NVIDIA/bootcheck/pkg/orchestrator"
	"github.com/NVIDIA/bootcheck/pkg/serializer"
)

// FileName is the report document inside a crash archive.
const FileName = "report.yaml"

// Report describes one collected incident. It is written into the archive
// before the completion marker and optionally published off the device.
type Report struct {
	header.Header `json:",inline" yaml:",inline"`

	Incident Incident `json:"incident" yaml:"incident"`
	Modules  Modules  `json:"modules" yaml:"modules"`
	Drain    Drain    `json:"drain" yaml:"drain"`
	Archive  Archive  `json:"archive" yaml:"archive"`
}

// Incident identifies what happened in the previous session.
type Incident struct {
	ModID   string `json:"modId" yaml:"modId"`
	Outcome string `json:"outcome" yaml:"outcome"`
	Reason  string `json:"reason" yaml:"reason"`
	Class   string `json:"class" yaml:"class"`
	Subtype uint32 `json:"subtype" yaml:"subtype"`
}

// Modules lists module names by collection state.
type Modules struct {
	Core      []string `json:"core,omitempty" yaml:"core,omitempty"`
	Requested []string `json:"requested,omitempty" yaml:"requested,omitempty"`
	Completed []string `json:"completed,omitempty" yaml:"completed,omitempty"`
	Remaining []string `json:"remaining,omitempty" yaml:"remaining,omitempty"`
}

// Drain summarizes the dump rounds.
type Drain struct {
	Rounds  int    `json:"rounds" yaml:"rounds"`
	Stop    string `json:"stop" yaml:"stop"`
	Partial bool   `json:"partial" yaml:"partial"`
}

// Archive locates the crash archive on the device.
type Archive struct {
	Name string `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`
}

// New builds the report for a drained incident.
func New(version string, d incident.Decision, res orchestrator.Result, name, path string) *Report {
	r := &Report{
		Header: *header.New(header.KindIncidentReport, version, header.WithMetadata("archive", name)),
		Modules: Modules{
			Requested: res.Requested.Names(),
			Completed: res.Completed.Names(),
			Remaining: res.Remaining.Names(),
		},
		Drain: Drain{
			Rounds:  res.Rounds,
			Stop:    string(res.Stop),
			Partial: res.Partial(),
		},
		Archive: Archive{Name: name, Path: path},
	}
	r.Incident.Outcome = d.Outcome.String()
	if info := d.Info; info != nil {
		r.Incident.ModID = info.ModID.String()
		r.Incident.Reason = info.Type.String()
		r.Incident.Class = info.Type.Class().String()
		r.Incident.Subtype = info.Subtype
		r.Modules.Core = info.Core.Names()
	}
	return r
}

// Marshal renders the report as YAML.
func (r *Report) Marshal() ([]byte, error) {
	return serializer.Marshal(serializer.FormatYAML, r)
}

// Load reads a report written by Marshal.
func Load(path string) (*Report, error) {
	r, err := serializer.FromFile[Report](path)
	if err != nil {
		return nil, fmt.Errorf("failed to load report %s: %w", path, err)
	}
	if r.Kind != header.KindIncidentReport {
		return nil, fmt.Errorf("unexpected document kind %q in %s", r.Kind, path)
	}
	return r, nil
}
