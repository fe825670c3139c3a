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

package loopguard

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/NVIDIA/bootcheck/pkg/storage"
)

// DefaultBootIDPath is the kernel's per-boot random identifier.
const DefaultBootIDPath = "/proc/sys/kernel/random/boot_id"

// Counter is the persisted consecutive-crash-reboot count.
type Counter struct {
	Count int `yaml:"count"`
	// BootID is the boot that last incremented Count.
	BootID string `yaml:"boot_id,omitempty"`
}

func readCounter(path string) (Counter, error) {
	var c Counter
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return c, fmt.Errorf("failed to read reboot counter: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Counter{}, fmt.Errorf("failed to parse reboot counter: %w", err)
	}
	if c.Count < 0 {
		return Counter{}, fmt.Errorf("invalid reboot counter %d", c.Count)
	}
	return c, nil
}

func writeCounter(path string, c Counter) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal reboot counter: %w", err)
	}
	return writeFile(path, b)
}

// writeFile creates the parent directory and atomically replaces path with b.
func writeFile(path string, b []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create %q: %w", dir, err)
	}
	return storage.WriteFileAtomic(path, b, 0o600)
}

// ReadBootID returns the current boot id, or "" when unavailable.
func ReadBootID(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
