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

package header

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	ts := time.Date(2025, 3, 1, 10, 0, 0, 0, time.FixedZone("x", 3600))
	h := New(KindIncidentReport, "v1.2.3",
		WithTimestamp(ts),
		WithMetadata("incident", "abc"),
	)

	assert.Equal(t, KindIncidentReport, h.Kind)
	assert.Equal(t, APIVersion, h.APIVersion)
	assert.Equal(t, "2025-03-01T09:00:00Z", h.Metadata["timestamp"])
	assert.Equal(t, "v1.2.3", h.Metadata["version"])
	assert.Equal(t, "abc", h.Metadata["incident"])
}

func TestInitOmitsEmptyVersion(t *testing.T) {
	var h Header
	h.Init(KindBaseline, "")
	_, ok := h.Metadata["version"]
	assert.False(t, ok)
	assert.NotEmpty(t, h.Metadata["timestamp"])
}

func TestKindIsValid(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindIncidentReport, true},
		{KindBaseline, true},
		{KindRunSummary, true},
		{Kind("Snapshot"), false},
		{Kind(""), false},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.IsValid())
		})
	}
}
