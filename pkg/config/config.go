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
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/NVIDIA/bootcheck/pkg/module"
	"github.com/NVIDIA/bootcheck/pkg/oci"
	"github.com/NVIDIA/bootcheck/pkg/serializer"
)

// Config is the bootcheckd configuration.
type Config struct {
	Storage    StorageConfig    `mapstructure:"storage"`
	CrashStore CrashStoreConfig `mapstructure:"crash_store"`
	Reason     ReasonConfig     `mapstructure:"reason"`
	Drain      DrainConfig      `mapstructure:"drain"`
	LoopGuard  LoopGuardConfig  `mapstructure:"loop_guard"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
	EarlyDiag  EarlyDiagConfig  `mapstructure:"early_diag"`
	Dumpers    DumpersConfig    `mapstructure:"dumpers"`
	Report     ReportConfig     `mapstructure:"report"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// StorageConfig locates the crash log filesystem.
type StorageConfig struct {
	Root         string        `mapstructure:"root"`
	Sentinel     string        `mapstructure:"sentinel"`
	MountPoint   string        `mapstructure:"mount_point"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxMountWait time.Duration `mapstructure:"max_mount_wait"`
}

// CrashStoreConfig locates the persistent crash-store record.
type CrashStoreConfig struct {
	Path   string `mapstructure:"path"`
	Offset int64  `mapstructure:"offset"`
}

// ReasonConfig configures where the reboot reason is read from.
type ReasonConfig struct {
	CmdlinePath string `mapstructure:"cmdline_path"`
	CodeKey     string `mapstructure:"code_key"`
	SubtypeKey  string `mapstructure:"subtype_key"`
}

// DrainConfig tunes the module dump loop.
type DrainConfig struct {
	PollInterval        time.Duration `mapstructure:"poll_interval"`
	MaxRegistrationWait time.Duration `mapstructure:"max_registration_wait"`
	DumpTimeout         time.Duration `mapstructure:"dump_timeout"`
	Concurrency         int           `mapstructure:"concurrency"`
}

// LoopGuardConfig configures reboot-loop protection.
type LoopGuardConfig struct {
	CounterPath     string `mapstructure:"counter_path"`
	ReasonPath      string `mapstructure:"reason_path"`
	BootIDPath      string `mapstructure:"boot_id_path"`
	MaxRebootTimes  int    `mapstructure:"max_reboot_times"`
	Target          string `mapstructure:"target"`
	ReasonTag       string `mapstructure:"reason_tag"`
	RebootParamPath string `mapstructure:"reboot_param_path"`
}

// ArchiveConfig configures crash archive finalization and retention.
type ArchiveConfig struct {
	SaveBaseline bool  `mapstructure:"save_baseline"`
	BlockingSync bool  `mapstructure:"blocking_sync"`
	MaxCount     int   `mapstructure:"max_count"`
	MaxBytes     int64 `mapstructure:"max_bytes"`
}

// EarlyDiagConfig configures boot-failure, DFX and maintenance dump capture.
// Empty sources disable them.
type EarlyDiagConfig struct {
	LogDir         string `mapstructure:"log_dir"`
	BootFailSource string `mapstructure:"boot_fail_source"`
	DFXDevice      string `mapstructure:"dfx_device"`
	DFXMaxBytes    int64  `mapstructure:"dfx_max_bytes"`
	MntnDumpSource string `mapstructure:"mntn_dump_source"`
}

// DumpersConfig lists the built-in dumpers.
type DumpersConfig struct {
	ProbeInterval time.Duration         `mapstructure:"probe_interval"`
	Pstore        PstoreDumperConfig    `mapstructure:"pstore"`
	Systemd       SystemdDumperConfig   `mapstructure:"systemd"`
	Commands      []CommandDumperConfig `mapstructure:"commands"`
}

// PstoreDumperConfig configures the kernel pstore dumper.
type PstoreDumperConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Dir     string   `mapstructure:"dir"`
	Modules []string `mapstructure:"modules"`
}

// SystemdDumperConfig configures the systemd unit state dumper.
type SystemdDumperConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Units   []string `mapstructure:"units"`
	Modules []string `mapstructure:"modules"`
}

// CommandDumperConfig runs an external program for a set of modules. The
// dumper registers once ReadyPath exists or ReadyUnit is active; with
// neither it registers immediately.
type CommandDumperConfig struct {
	Name      string   `mapstructure:"name"`
	Modules   []string `mapstructure:"modules"`
	Path      string   `mapstructure:"path"`
	Args      []string `mapstructure:"args"`
	Env       []string `mapstructure:"env"`
	ReadyPath string   `mapstructure:"ready_path"`
	ReadyUnit string   `mapstructure:"ready_unit"`
}

// ReportConfig configures off-device publishing.
type ReportConfig struct {
	ConfigMap   string `mapstructure:"configmap"`
	Format      string `mapstructure:"format"`
	Kubeconfig  string `mapstructure:"kubeconfig"`
	Registry    string `mapstructure:"registry"`
	PlainHTTP   bool   `mapstructure:"plain_http"`
	InsecureTLS bool   `mapstructure:"insecure_tls"`
}

// MetricsConfig configures the node-exporter textfile output.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// Validate checks the configuration for values the controller cannot use.
func (c *Config) Validate() error {
	if c.Storage.Root == "" || !filepath.IsAbs(c.Storage.Root) {
		return fmt.Errorf("storage.root must be an absolute path, got %q", c.Storage.Root)
	}
	if c.Storage.PollInterval <= 0 {
		return fmt.Errorf("storage.poll_interval must be positive, got %s", c.Storage.PollInterval)
	}
	if c.Storage.MaxMountWait < 0 {
		return fmt.Errorf("storage.max_mount_wait must not be negative, got %s", c.Storage.MaxMountWait)
	}
	if c.CrashStore.Path == "" {
		return fmt.Errorf("crash_store.path is required")
	}
	if c.CrashStore.Offset < 0 {
		return fmt.Errorf("crash_store.offset must not be negative, got %d", c.CrashStore.Offset)
	}
	if c.Drain.PollInterval <= 0 {
		return fmt.Errorf("drain.poll_interval must be positive, got %s", c.Drain.PollInterval)
	}
	if c.Drain.MaxRegistrationWait < 0 {
		return fmt.Errorf("drain.max_registration_wait must not be negative, got %s", c.Drain.MaxRegistrationWait)
	}
	if c.Drain.Concurrency < 1 {
		return fmt.Errorf("drain.concurrency must be at least 1, got %d", c.Drain.Concurrency)
	}
	if c.LoopGuard.CounterPath == "" {
		return fmt.Errorf("loop_guard.counter_path is required")
	}
	if c.LoopGuard.MaxRebootTimes < 1 {
		return fmt.Errorf("loop_guard.max_reboot_times must be at least 1, got %d", c.LoopGuard.MaxRebootTimes)
	}
	if c.Archive.MaxCount < 0 || c.Archive.MaxBytes < 0 {
		return fmt.Errorf("archive retention limits must not be negative")
	}
	if err := c.Dumpers.validate(); err != nil {
		return err
	}
	return c.Report.validate()
}

func (d *DumpersConfig) validate() error {
	if d.ProbeInterval <= 0 {
		return fmt.Errorf("dumpers.probe_interval must be positive, got %s", d.ProbeInterval)
	}
	if _, err := module.ParseSet(d.Pstore.Modules); err != nil {
		return fmt.Errorf("dumpers.pstore.modules: %w", err)
	}
	if _, err := module.ParseSet(d.Systemd.Modules); err != nil {
		return fmt.Errorf("dumpers.systemd.modules: %w", err)
	}
	seen := map[string]bool{}
	for i, c := range d.Commands {
		if c.Name == "" {
			return fmt.Errorf("dumpers.commands[%d].name is required", i)
		}
		if seen[c.Name] {
			return fmt.Errorf("dumpers.commands[%d]: duplicate name %q", i, c.Name)
		}
		seen[c.Name] = true
		if c.Path == "" {
			return fmt.Errorf("dumpers.commands[%d].path is required", i)
		}
		if len(c.Modules) == 0 {
			return fmt.Errorf("dumpers.commands[%d].modules must not be empty", i)
		}
		if _, err := module.ParseSet(c.Modules); err != nil {
			return fmt.Errorf("dumpers.commands[%d].modules: %w", i, err)
		}
	}
	return nil
}

func (r *ReportConfig) validate() error {
	if serializer.Format(r.Format).IsUnknown() {
		return fmt.Errorf("report.format %q is not one of %s", r.Format, strings.Join(serializer.SupportedFormats(), ", "))
	}
	if r.ConfigMap != "" {
		if _, _, err := serializer.ParseConfigMapURI(r.ConfigMap); err != nil {
			return fmt.Errorf("report.configmap: %w", err)
		}
	}
	if r.Registry != "" {
		if _, err := oci.ParseReference(r.Registry); err != nil {
			return fmt.Errorf("report.registry: %w", err)
		}
	}
	return nil
}
