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

package finalizer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/bootcheck/pkg/crashstore"
	"github.com/NVIDIA/bootcheck/pkg/incident"
	"github.com/NVIDIA/bootcheck/pkg/module"
	"github.com/NVIDIA/bootcheck/pkg/orchestrator"
	"github.com/NVIDIA/bootcheck/pkg/reason"
	"github.com/NVIDIA/bootcheck/pkg/report"
	"github.com/NVIDIA/bootcheck/pkg/storage"
)

func writeReport(t *testing.T, root, name string, done bool) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	info := incident.New(reason.Reason{Code: reason.Label1})
	res := orchestrator.Result{
		Requested: module.NewSet(module.AP),
		Completed: module.NewSet(module.AP),
		Rounds:    1,
		Stop:      orchestrator.StopComplete,
	}
	r := report.New("v1", incident.Decision{Outcome: incident.SaveSimple, Info: info}, res, name, dir)
	data, err := r.Marshal()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, report.FileName), data, 0o600))
	if done {
		require.NoError(t, os.WriteFile(filepath.Join(dir, DoneMarker), nil, 0o600))
	}
}

func pendingStore() *crashstore.Memory {
	h := crashstore.Clean()
	h.Cleartext.SavefileFlag = crashstore.SaveNotDone
	return crashstore.NewMemory(h)
}

func TestFinalizeCleartext(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeReport(t, root, "20261019T000001Z-a", true)
	writeReport(t, root, "20261019T000002Z-b", true)
	writeReport(t, root, "20261019T000003Z-c", false)

	store := pendingStore()
	c := NewCleartext(root, storage.New(root, ""), store)
	require.NoError(t, c.FinalizeCleartext(ctx))

	assert.FileExists(t, filepath.Join(root, "20261019T000002Z-b", CleartextName))
	assert.NoFileExists(t, filepath.Join(root, "20261019T000001Z-a", CleartextName))
	assert.NoFileExists(t, filepath.Join(root, "20261019T000003Z-c", CleartextName), "incomplete archives are skipped")

	h, err := store.ReadHeader(ctx)
	require.NoError(t, err)
	assert.Equal(t, crashstore.SaveDone, h.Cleartext.SavefileFlag)
}

func TestFinalizeCleartextNothingToRender(t *testing.T) {
	ctx := context.Background()
	store := pendingStore()
	c := NewCleartext(t.TempDir(), storage.New(t.TempDir(), ""), store)
	require.NoError(t, c.FinalizeCleartext(ctx))

	h, err := store.ReadHeader(ctx)
	require.NoError(t, err)
	assert.Equal(t, crashstore.SaveDone, h.Cleartext.SavefileFlag)
}

func TestRender(t *testing.T) {
	info := incident.New(reason.Reason{Code: 0x30, Subtype: 2})
	info.ModID = incident.ModIDLastSaveNotDone
	res := orchestrator.Result{
		Requested: module.NewSet(module.AP, module.Location),
		Completed: module.NewSet(module.AP),
		Remaining: module.NewSet(module.Location),
		Rounds:    1,
		Stop:      orchestrator.StopNoProgress,
	}
	r := report.New("v1", incident.Decision{Outcome: incident.SavePriorIncomplete, Info: info}, res, "n", "/p")

	out := string(Render(r))
	assert.Contains(t, out, "Incident Report\n===============\n")
	assert.Contains(t, out, "Version: v1")
	assert.Contains(t, out, "Mod Id:      last-save-not-done")
	assert.Contains(t, out, "Reason:      0x30")
	assert.Contains(t, out, "Remaining:   location")
	assert.Contains(t, out, "Partial:     true")
}

func TestSplitCamel(t *testing.T) {
	assert.Equal(t, "incident report", splitCamel("IncidentReport"))
	assert.Equal(t, "run summary", splitCamel("RunSummary"))
	assert.Equal(t, "", splitCamel(""))
}
