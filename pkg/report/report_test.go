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
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/NVIDIA/bootcheck/pkg/header"
	"github.com/NVIDIA/bootcheck/pkg/incident"
	"github.com/NVIDIA/bootcheck/pkg/module"
	"github.com/NVIDIA/bootcheck/pkg/oci"
	"github.com/NVIDIA/bootcheck/pkg/orchestrator"
	"github.com/NVIDIA/bootcheck/pkg/reason"
	"github.com/NVIDIA/bootcheck/pkg/serializer"
)

func testReport() *Report {
	info := incident.New(reason.Reason{Code: reason.Label2, Subtype: 7})
	info.Core = module.NewSet(module.AP, module.WLAN)
	res := orchestrator.Result{
		Requested: module.NewSet(module.AP, module.WLAN),
		Completed: module.NewSet(module.AP),
		Remaining: module.NewSet(module.WLAN),
		Rounds:    2,
		Stop:      orchestrator.StopNoProgress,
	}
	d := incident.Decision{Outcome: incident.SaveSimple, Info: info}
	return New("v1.2.3", d, res, "20261019T101010Z-abc", "/data/crash/20261019T101010Z-abc")
}

func TestNew(t *testing.T) {
	r := testReport()

	assert.Equal(t, header.KindIncidentReport, r.Kind)
	assert.Equal(t, "v1.2.3", r.Metadata["version"])
	assert.Equal(t, "20261019T101010Z-abc", r.Metadata["archive"])
	assert.Equal(t, "abnormal-reboot", r.Incident.ModID)
	assert.Equal(t, "save", r.Incident.Outcome)
	assert.Equal(t, "0x24", r.Incident.Reason)
	assert.Equal(t, "simple-reset", r.Incident.Class)
	assert.Equal(t, uint32(7), r.Incident.Subtype)
	assert.Equal(t, []string{"ap", "wlan"}, r.Modules.Core)
	assert.Equal(t, []string{"ap"}, r.Modules.Completed)
	assert.Equal(t, []string{"wlan"}, r.Modules.Remaining)
	assert.True(t, r.Drain.Partial)
	assert.Equal(t, "no-progress", r.Drain.Stop)
}

func TestNewWithoutInfo(t *testing.T) {
	r := New("", incident.Decision{Outcome: incident.NoSave}, orchestrator.Result{}, "x", "/x")
	assert.Equal(t, "no-save", r.Incident.Outcome)
	assert.Empty(t, r.Incident.ModID)
	assert.False(t, r.Drain.Partial)
}

func TestMarshalAndLoad(t *testing.T) {
	r := testReport()
	data, err := r.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), "kind: IncidentReport")
	assert.Contains(t, string(data), "- wlan")

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, r.Incident, got.Incident)
	assert.Equal(t, r.Modules, got.Modules)
	assert.Equal(t, r.Archive, got.Archive)
}

func TestLoadWrongKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("kind: RunSummary\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestPublisherDisabled(t *testing.T) {
	p, err := NewPublisher()
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	assert.NoError(t, p.Publish(context.Background(), testReport(), t.TempDir()))

	var nilPublisher *Publisher
	assert.False(t, nilPublisher.Enabled())
}

func TestPublisherInvalidOptions(t *testing.T) {
	_, err := NewPublisher(WithConfigMap("kube-system/x", serializer.FormatYAML))
	assert.Error(t, err)

	_, err = NewPublisher(WithRegistry("ghcr.io/nvidia/crash", false, false))
	assert.Error(t, err)
}

func TestPublishConfigMap(t *testing.T) {
	ctx := context.Background()
	cs := fake.NewClientset()

	p, err := NewPublisher(WithConfigMap("cm://kube-system/crash", serializer.FormatYAML, serializer.WithKubeClient(cs)))
	require.NoError(t, err)
	require.True(t, p.Enabled())
	require.NoError(t, p.Publish(ctx, testReport(), t.TempDir()))

	cm, err := cs.CoreV1().ConfigMaps("kube-system").Get(ctx, "crash", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Contains(t, cm.Data["incidentreport.yaml"], "modId: abnormal-reboot")
	assert.Equal(t, "v1.2.3", cm.Labels["app.kubernetes.io/version"])
}

func TestPublishRegistry(t *testing.T) {
	var got oci.PushOptions
	push := func(_ context.Context, opts oci.PushOptions) (*oci.PushResult, error) {
		got = opts
		return &oci.PushResult{Digest: "sha256:abc", Reference: "ghcr.io/nvidia/crash:" + opts.Tag}, nil
	}

	p, err := NewPublisher(WithRegistry("oci://ghcr.io/nvidia/crash", true, false), WithPushFunc(push))
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, p.Publish(context.Background(), testReport(), dir))

	assert.Equal(t, dir, got.SourceDir)
	assert.Equal(t, "ghcr.io", got.Registry)
	assert.Equal(t, "nvidia/crash", got.Repository)
	assert.Equal(t, "20261019T101010Z-abc", got.Tag)
	assert.True(t, got.PlainHTTP)
	assert.Equal(t, "0x24", got.Annotations["com.nvidia.bootcheck.reason"])
	assert.Equal(t, "v1.2.3", got.Annotations["com.nvidia.bootcheck.version"])
	assert.Equal(t, "20261019T101010Z-abc", got.Annotations["com.nvidia.bootcheck.archive"])
}

func TestPublishRegistryExplicitTag(t *testing.T) {
	var tag string
	push := func(_ context.Context, opts oci.PushOptions) (*oci.PushResult, error) {
		tag = opts.Tag
		return &oci.PushResult{}, nil
	}

	p, err := NewPublisher(WithRegistry("oci://ghcr.io/nvidia/crash:latest", false, false), WithPushFunc(push))
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), testReport(), t.TempDir()))
	assert.Equal(t, "latest", tag)
}

func TestPublishRegistryError(t *testing.T) {
	boom := errors.New("registry down")
	push := func(context.Context, oci.PushOptions) (*oci.PushResult, error) {
		return nil, boom
	}

	p, err := NewPublisher(WithRegistry("oci://ghcr.io/nvidia/crash", false, false), WithPushFunc(push))
	require.NoError(t, err)

	err = p.Publish(context.Background(), testReport(), t.TempDir())
	assert.ErrorIs(t, err, boom)
}
