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

package bootcheck

import (
	"github.com/NVIDIA/bootcheck/pkg/header"
)

// Summary is the serializable form of a Result.
type Summary struct {
	header.Header `json:",inline" yaml:",inline"`

	Outcome   string   `json:"outcome" yaml:"outcome"`
	Decision  string   `json:"decision" yaml:"decision"`
	States    []string `json:"states" yaml:"states"`
	Archive   string   `json:"archive,omitempty" yaml:"archive,omitempty"`
	Completed []string `json:"completed,omitempty" yaml:"completed,omitempty"`
	Remaining []string `json:"remaining,omitempty" yaml:"remaining,omitempty"`
}

// Summary returns the run summary document for r.
func (r *Result) Summary(version string) *Summary {
	s := &Summary{
		Header:    *header.New(header.KindRunSummary, version),
		Outcome:   string(r.Outcome),
		Decision:  r.Decision.Outcome.String(),
		Completed: r.Drain.Completed.Names(),
		Remaining: r.Drain.Remaining.Names(),
	}
	for _, st := range r.States {
		s.States = append(s.States, string(st))
	}
	if r.Archive != nil {
		s.Archive = r.Archive.Dir
	}
	return s
}
