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

package defaults

import "time"

// Wait intervals for the unbounded polling loops.
const (
	// MountPollInterval is the delay between storage readiness checks.
	MountPollInterval = 1 * time.Second

	// MountWaitMax bounds the storage readiness wait. Zero waits forever.
	MountWaitMax time.Duration = 0

	// RegistrationPollInterval is the delay between registry snapshots while
	// no requested module is registered.
	RegistrationPollInterval = 1000 * time.Millisecond

	// RegistrationWaitMax bounds the module registration wait. Zero waits forever.
	RegistrationWaitMax time.Duration = 0

	// WaitLogInterval throttles repeated "still waiting" log lines.
	WaitLogInterval = 30 * time.Second
)

// Dumper timeouts and limits.
const (
	// DumperTimeout is the maximum duration a single module dump may take.
	DumperTimeout = 2 * time.Minute

	// DumperConcurrency limits how many module dumps run in parallel.
	DumperConcurrency = 4

	// RegistrarPollInterval is the delay between dumper readiness probes.
	RegistrarPollInterval = 500 * time.Millisecond
)

// Loop guard defaults.
const (
	// MaxRebootTimes is the number of consecutive self-triggered abnormal
	// reboots tolerated before the device is sent to the fallback target.
	MaxRebootTimes = 5

	// FallbackTarget is the reboot target used when the ceiling is exceeded.
	FallbackTarget = "erecovery"

	// ErecoveryReasonTag is the reason tag left for the fallback boot stage.
	ErecoveryReasonTag = "erecovery_enter_reason:=2015"
)

// Archive defaults.
const (
	// ArchiveMaxCount is the number of incident archives kept on storage.
	ArchiveMaxCount = 8

	// ArchiveMaxBytes is the total size budget for incident archives.
	ArchiveMaxBytes int64 = 512 << 20

	// DFXSnapshotMaxBytes caps the diagnostics partition snapshot.
	DFXSnapshotMaxBytes int64 = 64 << 20
)

// Remote publishing timeouts.
const (
	// ConfigMapWriteTimeout is the timeout for writing to ConfigMaps.
	ConfigMapWriteTimeout = 30 * time.Second

	// OCIPushTimeout is the timeout for pushing an archive to a registry.
	OCIPushTimeout = 5 * time.Minute
)
