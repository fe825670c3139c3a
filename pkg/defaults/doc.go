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

// Package defaults provides centralized configuration constants for bootcheck.
//
// This package defines poll intervals, timeouts, limits and well-known paths
// used across the codebase. Centralizing these values ensures consistency and
// makes tuning easier. Every value here can be overridden from the config file
// (see pkg/config); these constants are the values used when nothing is set.
//
// # Categories
//
//   - Wait intervals: storage readiness and module registration polling
//   - Dumper timeouts: per-module dump execution
//   - Loop guard: reboot ceiling and fallback target
//   - Archive: layout names and retention limits
//   - Remote publishing: ConfigMap and OCI push timeouts
//
// # Unbounded waits
//
// MountWaitMax and RegistrationWaitMax are zero, which means "wait forever".
// Boot-time capture favors completeness over latency; operators who prefer
// a bounded boot can set a positive value in the config file.
package defaults
