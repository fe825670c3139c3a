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

package bootcheck

import (
	"log/slog"

	"github.com/coreos/go-systemd/v22/daemon"
)

// StatusNotifier reports controller progress to the service manager.
type StatusNotifier interface {
	Status(state State)
	Ready()
}

// SystemdNotifier reports through sd_notify. It is a no-op when the process
// was not started by systemd with a notify socket.
type SystemdNotifier struct{}

// Status implements StatusNotifier.
func (SystemdNotifier) Status(state State) {
	notify("STATUS=" + string(state))
}

// Ready implements StatusNotifier.
func (SystemdNotifier) Ready() {
	notify(daemon.SdNotifyReady)
}

func notify(msg string) {
	if _, err := daemon.SdNotify(false, msg); err != nil {
		slog.Debug("sd_notify failed", "message", msg, "error", err)
	}
}

type nopNotifier struct{}

func (nopNotifier) Status(State) {}
func (nopNotifier) Ready()       {}
