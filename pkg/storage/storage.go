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

package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/NVIDIA/bootcheck/pkg/defaults"
	"github.com/NVIDIA/bootcheck/pkg/errors"
	"github.com/NVIDIA/bootcheck/pkg/parser"
	"golang.org/x/sys/unix"
	"golang.org/x/time/rate"
	"k8s.io/apimachinery/pkg/util/wait"
)

// DefaultMountInfoPath lists the mounts visible to this process.
const DefaultMountInfoPath = "/proc/self/mountinfo"

// FS is the crash log filesystem.
type FS struct {
	// Root is the directory incident archives are created under.
	Root string
	// Sentinel must exist before the filesystem is considered ready,
	// e.g. the lost+found directory of the data partition.
	Sentinel string
	// MountPoint, when set, must appear in MountInfoPath.
	MountPoint    string
	MountInfoPath string
	PollInterval  time.Duration
	// MaxWait bounds WaitForMount. Zero waits until ctx is canceled.
	MaxWait time.Duration
}

// New returns an FS rooted at root with default polling.
func New(root, sentinel string) *FS {
	return &FS{
		Root:          root,
		Sentinel:      sentinel,
		MountInfoPath: DefaultMountInfoPath,
		PollInterval:  defaults.MountPollInterval,
		MaxWait:       defaults.MountWaitMax,
	}
}

// WaitForMount blocks until the filesystem is ready.
func (f *FS) WaitForMount(ctx context.Context) error {
	if f.MaxWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.MaxWait)
		defer cancel()
	}

	interval := f.PollInterval
	if interval <= 0 {
		interval = defaults.MountPollInterval
	}
	logWait := rate.Sometimes{Interval: defaults.WaitLogInterval}
	start := time.Now()

	err := wait.PollUntilContextCancel(ctx, interval, true, func(context.Context) (bool, error) {
		ready, reason := f.ready()
		if !ready {
			logWait.Do(func() {
				slog.Info("waiting for crash log storage", "reason", reason, "root", f.Root)
			})
		}
		return ready, nil
	})
	if err != nil {
		return errors.WrapWithContext(errors.ErrCodeTimeout, "crash log storage not ready", err,
			map[string]any{"sentinel": f.Sentinel, "mountPoint": f.MountPoint, "waited": time.Since(start).String()})
	}
	slog.Debug("crash log storage ready", "waited", time.Since(start).String())
	return nil
}

func (f *FS) ready() (bool, string) {
	if f.Sentinel != "" {
		if _, err := os.Stat(f.Sentinel); err != nil {
			return false, "sentinel missing"
		}
	}
	if f.MountPoint != "" {
		mounted, err := isMounted(f.MountInfoPath, f.MountPoint)
		if err != nil {
			return false, err.Error()
		}
		if !mounted {
			return false, "not mounted"
		}
	}
	return true, ""
}

// isMounted reports whether mountPoint is listed in a mountinfo file.
func isMounted(mountInfoPath, mountPoint string) (bool, error) {
	lines, err := parser.New(parser.WithSkipComments(false), parser.WithMaxSize(4<<20)).ReadLines(mountInfoPath)
	if err != nil {
		return false, err
	}
	want := filepath.Clean(mountPoint)
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) > 4 && fields[4] == want {
			return true, nil
		}
	}
	return false, nil
}

// CreatePath creates the archive directory name under Root.
func (f *FS) CreatePath(_ context.Context, name string) (string, error) {
	if name == "" || strings.Contains(name, "..") || strings.ContainsRune(name, os.PathSeparator) {
		return "", errors.NewWithContext(errors.ErrCodeInvalidRequest, "invalid archive name", map[string]any{"name": name})
	}
	dir := filepath.Join(f.Root, name)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", errors.WrapWithContext(errors.ErrCodePathCreation, "failed to create archive directory", err,
			map[string]any{"path": dir})
	}
	return dir, nil
}

// WriteFile atomically replaces dir/name with data.
func (f *FS) WriteFile(_ context.Context, dir, name string, data []byte) error {
	return WriteFileAtomic(filepath.Join(dir, name), data, 0o640)
}

// WriteMarker creates the marker file name in dir.
func (f *FS) WriteMarker(ctx context.Context, dir, name string) error {
	return f.WriteFile(ctx, dir, name, nil)
}

// Sync flushes all filesystem buffers.
func (f *FS) Sync(context.Context) error {
	unix.Sync()
	return nil
}
