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
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"

	"github.com/NVIDIA/bootcheck/pkg/defaults"
	"github.com/NVIDIA/bootcheck/pkg/dumper"
	"github.com/NVIDIA/bootcheck/pkg/loopguard"
	"github.com/NVIDIA/bootcheck/pkg/reason"
	"github.com/NVIDIA/bootcheck/pkg/reboot"
	"github.com/NVIDIA/bootcheck/pkg/serializer"
)

// DefaultPath is read when no config file is given.
const DefaultPath = "/etc/bootcheck/bootcheck.yaml"

const (
	configType = "yaml"
	envPrefix  = "BOOTCHECK"
)

// Load reads configuration from path, environment variables and defaults.
// An explicitly given path must exist; a missing DefaultPath is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !(errors.As(err, &notFound) || isNotExist(err)) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("storage.root", "/data/log/bootcheck")
	v.SetDefault("storage.sentinel", "/data/lost+found")
	v.SetDefault("storage.mount_point", "")
	v.SetDefault("storage.poll_interval", defaults.MountPollInterval)
	v.SetDefault("storage.max_mount_wait", defaults.MountWaitMax)

	v.SetDefault("crash_store.path", "/var/lib/bootcheck/crashstore")
	v.SetDefault("crash_store.offset", 0)

	v.SetDefault("reason.cmdline_path", reason.DefaultCmdlinePath)
	v.SetDefault("reason.code_key", reason.DefaultCodeKey)
	v.SetDefault("reason.subtype_key", reason.DefaultSubtypeKey)

	v.SetDefault("drain.poll_interval", defaults.RegistrationPollInterval)
	v.SetDefault("drain.max_registration_wait", defaults.RegistrationWaitMax)
	v.SetDefault("drain.dump_timeout", defaults.DumperTimeout)
	v.SetDefault("drain.concurrency", defaults.DumperConcurrency)

	v.SetDefault("loop_guard.counter_path", "/var/lib/bootcheck/reboot_times.yaml")
	v.SetDefault("loop_guard.reason_path", "/var/lib/bootcheck/erecovery_reason")
	v.SetDefault("loop_guard.boot_id_path", loopguard.DefaultBootIDPath)
	v.SetDefault("loop_guard.max_reboot_times", defaults.MaxRebootTimes)
	v.SetDefault("loop_guard.target", defaults.FallbackTarget)
	v.SetDefault("loop_guard.reason_tag", defaults.ErecoveryReasonTag)
	v.SetDefault("loop_guard.reboot_param_path", reboot.DefaultParamPath)

	v.SetDefault("archive.save_baseline", false)
	v.SetDefault("archive.blocking_sync", true)
	v.SetDefault("archive.max_count", defaults.ArchiveMaxCount)
	v.SetDefault("archive.max_bytes", defaults.ArchiveMaxBytes)

	v.SetDefault("early_diag.log_dir", "/run/bootcheck")
	v.SetDefault("early_diag.boot_fail_source", "")
	v.SetDefault("early_diag.dfx_device", "")
	v.SetDefault("early_diag.dfx_max_bytes", defaults.DFXSnapshotMaxBytes)
	v.SetDefault("early_diag.mntn_dump_source", "")

	v.SetDefault("dumpers.probe_interval", defaults.RegistrarPollInterval)
	v.SetDefault("dumpers.pstore.enabled", true)
	v.SetDefault("dumpers.pstore.dir", dumper.DefaultPstoreDir)
	v.SetDefault("dumpers.pstore.modules", []string{"ap"})
	v.SetDefault("dumpers.systemd.enabled", false)
	v.SetDefault("dumpers.systemd.units", []string{})
	v.SetDefault("dumpers.systemd.modules", []string{})
	v.SetDefault("dumpers.commands", []any{})

	v.SetDefault("report.configmap", "")
	v.SetDefault("report.format", string(serializer.FormatYAML))
	v.SetDefault("report.kubeconfig", "")
	v.SetDefault("report.registry", "")
	v.SetDefault("report.plain_http", false)
	v.SetDefault("report.insecure_tls", false)

	v.SetDefault("metrics.textfile", "")
}
