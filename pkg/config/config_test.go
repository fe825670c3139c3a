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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/bootcheck/pkg/defaults"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bootcheck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "/data/log/bootcheck", cfg.Storage.Root)
	assert.Equal(t, "/data/lost+found", cfg.Storage.Sentinel)
	assert.Equal(t, defaults.MountPollInterval, cfg.Storage.PollInterval)
	assert.Zero(t, cfg.Storage.MaxMountWait)
	assert.Zero(t, cfg.Drain.MaxRegistrationWait)
	assert.Equal(t, defaults.RegistrationPollInterval, cfg.Drain.PollInterval)
	assert.Equal(t, defaults.DumperConcurrency, cfg.Drain.Concurrency)
	assert.Equal(t, defaults.MaxRebootTimes, cfg.LoopGuard.MaxRebootTimes)
	assert.Equal(t, "erecovery", cfg.LoopGuard.Target)
	assert.Equal(t, defaults.ArchiveMaxBytes, cfg.Archive.MaxBytes)
	assert.True(t, cfg.Archive.BlockingSync)
	assert.False(t, cfg.Archive.SaveBaseline)
	assert.True(t, cfg.Dumpers.Pstore.Enabled)
	assert.Equal(t, []string{"ap"}, cfg.Dumpers.Pstore.Modules)
	assert.Empty(t, cfg.Dumpers.Commands)
	assert.Equal(t, "yaml", cfg.Report.Format)
	assert.Empty(t, cfg.Metrics.Textfile)
	assert.Empty(t, cfg.EarlyDiag.MntnDumpSource)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
storage:
  root: /mnt/crash
  max_mount_wait: 2m
drain:
  max_registration_wait: 30s
  concurrency: 2
archive:
  save_baseline: true
  max_count: 3
dumpers:
  commands:
    - name: modem
      modules: [modemap, lpm3]
      path: /usr/libexec/modem-dump
      args: ["--all"]
      ready_unit: modem.service
report:
  configmap: cm://kube-system/crash
  registry: oci://ghcr.io/nvidia/crash
metrics:
  textfile: /var/lib/node_exporter/bootcheck.prom
early_diag:
  mntn_dump_source: /dev/block/by-name/mntndump
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/mnt/crash", cfg.Storage.Root)
	assert.Equal(t, 2*time.Minute, cfg.Storage.MaxMountWait)
	assert.Equal(t, 30*time.Second, cfg.Drain.MaxRegistrationWait)
	assert.Equal(t, 2, cfg.Drain.Concurrency)
	assert.True(t, cfg.Archive.SaveBaseline)
	assert.Equal(t, 3, cfg.Archive.MaxCount)
	require.Len(t, cfg.Dumpers.Commands, 1)
	assert.Equal(t, "modem", cfg.Dumpers.Commands[0].Name)
	assert.Equal(t, []string{"modemap", "lpm3"}, cfg.Dumpers.Commands[0].Modules)
	assert.Equal(t, []string{"--all"}, cfg.Dumpers.Commands[0].Args)
	assert.Equal(t, "modem.service", cfg.Dumpers.Commands[0].ReadyUnit)
	assert.Equal(t, "cm://kube-system/crash", cfg.Report.ConfigMap)
	assert.Equal(t, "oci://ghcr.io/nvidia/crash", cfg.Report.Registry)
	assert.Equal(t, "/var/lib/node_exporter/bootcheck.prom", cfg.Metrics.Textfile)
	assert.Equal(t, "/dev/block/by-name/mntndump", cfg.EarlyDiag.MntnDumpSource)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("BOOTCHECK_LOOP_GUARD_MAX_REBOOT_TIMES", "3")
	t.Setenv("BOOTCHECK_STORAGE_ROOT", "/srv/crash")

	cfg, err := Load(writeConfig(t, "storage:\n  root: /mnt/crash\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.LoopGuard.MaxRebootTimes)
	assert.Equal(t, "/srv/crash", cfg.Storage.Root)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalid(t *testing.T) {
	_, err := Load(writeConfig(t, "storage:\n  root: relative/path\n"))
	assert.ErrorContains(t, err, "storage.root")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"no crash store", func(c *Config) { c.CrashStore.Path = "" }, "crash_store.path"},
		{"negative offset", func(c *Config) { c.CrashStore.Offset = -1 }, "crash_store.offset"},
		{"zero poll", func(c *Config) { c.Drain.PollInterval = 0 }, "drain.poll_interval"},
		{"negative wait", func(c *Config) { c.Drain.MaxRegistrationWait = -time.Second }, "drain.max_registration_wait"},
		{"zero concurrency", func(c *Config) { c.Drain.Concurrency = 0 }, "drain.concurrency"},
		{"zero ceiling", func(c *Config) { c.LoopGuard.MaxRebootTimes = 0 }, "loop_guard.max_reboot_times"},
		{"negative retention", func(c *Config) { c.Archive.MaxCount = -1 }, "retention"},
		{"unknown pstore module", func(c *Config) { c.Dumpers.Pstore.Modules = []string{"gpu"} }, "dumpers.pstore.modules"},
		{"command without name", func(c *Config) {
			c.Dumpers.Commands = []CommandDumperConfig{{Path: "/bin/true", Modules: []string{"ap"}}}
		}, "name is required"},
		{"duplicate command", func(c *Config) {
			cmd := CommandDumperConfig{Name: "x", Path: "/bin/true", Modules: []string{"ap"}}
			c.Dumpers.Commands = []CommandDumperConfig{cmd, cmd}
		}, "duplicate name"},
		{"command without modules", func(c *Config) {
			c.Dumpers.Commands = []CommandDumperConfig{{Name: "x", Path: "/bin/true"}}
		}, "modules must not be empty"},
		{"bad format", func(c *Config) { c.Report.Format = "xml" }, "report.format"},
		{"bad configmap", func(c *Config) { c.Report.ConfigMap = "kube-system/x" }, "report.configmap"},
		{"bad registry", func(c *Config) { c.Report.Registry = "ghcr.io/x" }, "report.registry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, ""))
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
