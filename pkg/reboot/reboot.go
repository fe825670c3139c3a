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

package reboot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/coreos/go-systemd/v22/dbus"
)

// Rebooter restarts the device into a named boot target.
type Rebooter interface {
	// RebootTo requests a reboot into target. It returns once the request
	// has been accepted. Callers must treat a nil return as terminal.
	RebootTo(ctx context.Context, target string) error
}

// Defaults for the systemd rebooter.
const (
	DefaultParamPath = "/run/systemd/reboot-param"
	rebootUnit       = "reboot.target"
	jobMode          = "replace-irreversibly"
)

// UnitStarter is the subset of the systemd D-Bus connection used to reboot.
type UnitStarter interface {
	StartUnitContext(ctx context.Context, name string, mode string, ch chan<- string) (int, error)
	Close()
}

// Systemd reboots through the service manager, passing the target as the
// reboot parameter so the bootloader picks it up.
type Systemd struct {
	ParamPath string
	Dial      func(ctx context.Context) (UnitStarter, error)
}

// NewSystemd returns a Systemd rebooter talking to the system bus.
func NewSystemd() *Systemd {
	return &Systemd{
		ParamPath: DefaultParamPath,
		Dial: func(ctx context.Context) (UnitStarter, error) {
			conn, err := dbus.NewSystemdConnectionContext(ctx)
			if err != nil {
				return nil, err
			}
			return conn, nil
		},
	}
}

// RebootTo implements Rebooter.
func (s *Systemd) RebootTo(ctx context.Context, target string) error {
	if err := os.MkdirAll(filepath.Dir(s.ParamPath), 0o755); err != nil {
		return fmt.Errorf("failed to create reboot parameter directory: %w", err)
	}
	if err := os.WriteFile(s.ParamPath, []byte(target+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write reboot parameter: %w", err)
	}

	conn, err := s.Dial(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to systemd: %w", err)
	}
	defer conn.Close()

	ch := make(chan string, 1)
	if _, err := conn.StartUnitContext(ctx, rebootUnit, jobMode, ch); err != nil {
		return fmt.Errorf("failed to start %s: %w", rebootUnit, err)
	}

	select {
	case result := <-ch:
		if result != "done" {
			return fmt.Errorf("%s job finished with %q", rebootUnit, result)
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	slog.Warn("reboot requested", "target", target)
	return nil
}

// Recorder is a Rebooter that only records requests.
type Recorder struct {
	mu      sync.Mutex
	Targets []string
	Err     error
}

// RebootTo implements Rebooter.
func (r *Recorder) RebootTo(_ context.Context, target string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Targets = append(r.Targets, target)
	return r.Err
}

// Calls returns the recorded targets.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.Targets...)
}
