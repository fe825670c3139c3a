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

package systemd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/NVIDIA/bootcheck/pkg/dumper"
	"github.com/NVIDIA/bootcheck/pkg/module"
	"github.com/coreos/go-systemd/v22/dbus"
	"gopkg.in/yaml.v3"
)

// Properties that are noisy, large or sensitive and never worth archiving.
var filterOutKeys = []string{
	"AllowedCPUs",
	"AllowedMemoryNodes",
	"Asserts",
	"BPFProgram",
	"BusName",
	"Id",
	"*Credential*",
	"*Timestamp*",
}

// Conn is the subset of the systemd D-Bus connection the dumper uses.
type Conn interface {
	GetAllPropertiesContext(ctx context.Context, unit string) (map[string]any, error)
	Close()
}

// DialFunc opens a Conn.
type DialFunc func(ctx context.Context) (Conn, error)

// DialSystem connects to the system manager over D-Bus.
func DialSystem(ctx context.Context) (Conn, error) {
	conn, err := dbus.NewSystemdConnectionContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to systemd: %w", err)
	}
	return conn, nil
}

// Dumper records the properties of the systemd units backing a subsystem,
// e.g. the positioning or WLAN daemons, into units.yaml.
type Dumper struct {
	ID     string
	Covers module.Set
	Units  []string
	Dial   DialFunc
}

var _ dumper.Dumper = (*Dumper)(nil)

// Name implements dumper.Dumper.
func (d *Dumper) Name() string { return d.ID }

// Modules implements dumper.Dumper.
func (d *Dumper) Modules() module.Set { return d.Covers }

// Dump implements dumper.Dumper. A unit whose properties cannot be read is
// recorded with its error rather than failing the dump.
func (d *Dumper) Dump(ctx context.Context, job dumper.Job) error {
	if len(d.Units) == 0 {
		return fmt.Errorf("no units configured for dumper %q", d.ID)
	}
	dial := d.Dial
	if dial == nil {
		dial = DialSystem
	}

	conn, err := dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	out := make(map[string]map[string]string, len(d.Units))
	for _, unit := range d.Units {
		props, err := conn.GetAllPropertiesContext(ctx, unit)
		if err != nil {
			slog.Warn("failed to get unit properties", "unit", unit, "error", err)
			out[unit] = map[string]string{"error": err.Error()}
			continue
		}
		out[unit] = filterOut(props, filterOutKeys)
	}

	b, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to marshal unit properties: %w", err)
	}
	if err := os.WriteFile(filepath.Join(job.Dir, "units.yaml"), b, 0o640); err != nil {
		return fmt.Errorf("failed to write unit properties: %w", err)
	}
	return nil
}

func filterOut(props map[string]any, patterns []string) map[string]string {
	res := make(map[string]string, len(props))
	for k, v := range props {
		if matchesAny(k, patterns) {
			continue
		}
		res[k] = fmt.Sprint(v)
	}
	return res
}

// matchesAny supports "prefix*", "*suffix", "*contains*" and exact patterns.
func matchesAny(key string, patterns []string) bool {
	for _, p := range patterns {
		switch {
		case len(p) > 1 && strings.HasPrefix(p, "*") && strings.HasSuffix(p, "*"):
			if strings.Contains(key, p[1:len(p)-1]) {
				return true
			}
		case strings.HasPrefix(p, "*"):
			if strings.HasSuffix(key, p[1:]) {
				return true
			}
		case strings.HasSuffix(p, "*"):
			if strings.HasPrefix(key, p[:len(p)-1]) {
				return true
			}
		case key == p:
			return true
		}
	}
	return false
}
