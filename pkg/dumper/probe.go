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

package dumper

import (
	"context"
	"fmt"
	"os"

	"github.com/coreos/go-systemd/v22/dbus"
)

// Probe reports whether a dumper's backing subsystem is ready.
type Probe func(ctx context.Context) (bool, error)

// Always is a probe that is immediately ready.
func Always() Probe {
	return func(context.Context) (bool, error) { return true, nil }
}

// PathExists is ready once path exists, e.g. a device node or sysfs attribute.
func PathExists(path string) Probe {
	return func(context.Context) (bool, error) {
		_, err := os.Stat(path)
		if err == nil {
			return true, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
}

// UnitPropertyGetter is the subset of the systemd D-Bus connection used by UnitReady.
type UnitPropertyGetter interface {
	GetUnitPropertyContext(ctx context.Context, unit string, propertyName string) (*dbus.Property, error)
}

// UnitReady is ready once the systemd unit's ActiveState is "active".
func UnitReady(conn UnitPropertyGetter, unit string) Probe {
	return func(ctx context.Context) (bool, error) {
		p, err := conn.GetUnitPropertyContext(ctx, unit, "ActiveState")
		if err != nil {
			return false, fmt.Errorf("failed to get state of %s: %w", unit, err)
		}
		state, ok := p.Value.Value().(string)
		if !ok {
			return false, fmt.Errorf("unexpected ActiveState type %T for %s", p.Value.Value(), unit)
		}
		return state == "active", nil
	}
}
