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

package earlydiag

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4/v4"

	"github.com/NVIDIA/bootcheck/pkg/defaults"
	"github.com/NVIDIA/bootcheck/pkg/errors"
	"github.com/NVIDIA/bootcheck/pkg/reason"
	"github.com/NVIDIA/bootcheck/pkg/storage"
)

// Output names under the destination directory.
const (
	BootFailFileName = "bootfail.info"
	DFXFileName      = "dfx.lz4"
	MntnDumpFileName = "mntndump.bin"
)

// BootFailRecord copies the boot-failure record left by the bootloader.
type BootFailRecord struct {
	// Source is the record file, e.g. a pstore or firmware node.
	Source string
	// DestDir receives BootFailFileName.
	DestDir string
}

// Capture copies the record into DestDir. A missing source means the
// previous boot left nothing and is not an error; the returned path is empty.
func (b *BootFailRecord) Capture(ctx context.Context) (string, error) {
	if b.Source == "" {
		return "", nil
	}
	src, err := os.Open(b.Source)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Debug("no boot-failure record", "source", b.Source)
			return "", nil
		}
		return "", fmt.Errorf("failed to open boot-failure record: %w", err)
	}
	defer src.Close()

	dst := filepath.Join(b.DestDir, BootFailFileName)
	n, err := writeAtomic(ctx, dst, func(w io.Writer) (int64, error) {
		return io.Copy(w, &ctxReader{ctx: ctx, r: src})
	})
	if err != nil {
		return "", fmt.Errorf("failed to capture boot-failure record: %w", err)
	}
	slog.Info("boot-failure record captured", "source", b.Source, "path", dst, "bytes", n)
	return dst, nil
}

// MntnDump keeps the maintenance dump of an abnormal reboot whose crash
// archive was already completed before the reset.
type MntnDump struct {
	// Source is the maintenance dump file or partition.
	Source string
	// DestDir receives MntnDumpFileName.
	DestDir string
}

// SaveLog copies Source into DestDir when code is an abnormal reboot. An
// unset or missing source is not an error.
func (m *MntnDump) SaveLog(ctx context.Context, code reason.Code) error {
	if m.Source == "" || code.Class() != reason.ClassAbnormal {
		return nil
	}
	src, err := os.Open(m.Source)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Debug("no maintenance dump", "source", m.Source)
			return nil
		}
		return fmt.Errorf("failed to open maintenance dump: %w", err)
	}
	defer src.Close()

	dst := filepath.Join(m.DestDir, MntnDumpFileName)
	n, err := writeAtomic(ctx, dst, func(w io.Writer) (int64, error) {
		return io.Copy(w, &ctxReader{ctx: ctx, r: src})
	})
	if err != nil {
		return fmt.Errorf("failed to save maintenance dump: %w", err)
	}
	slog.Info("maintenance dump saved", "code", code.String(), "path", dst, "bytes", n)
	return nil
}

// DFXSnapshot copies the head of a diagnostics partition into an
// lz4-compressed file.
type DFXSnapshot struct {
	// Device is the partition block device or image file.
	Device string
	// DestDir receives DFXFileName.
	DestDir string
	// MaxBytes caps how much of the partition is read.
	MaxBytes int64
}

// NewDFXSnapshot returns a snapshot of device into destDir with the default cap.
func NewDFXSnapshot(device, destDir string) *DFXSnapshot {
	return &DFXSnapshot{
		Device:   device,
		DestDir:  destDir,
		MaxBytes: defaults.DFXSnapshotMaxBytes,
	}
}

// Save writes the compressed snapshot and returns its path.
func (d *DFXSnapshot) Save(ctx context.Context) (string, error) {
	src, err := os.Open(d.Device)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.WrapWithContext(errors.ErrCodeNotFound, "diagnostics partition not found", err,
				map[string]any{"device": d.Device})
		}
		return "", fmt.Errorf("failed to open diagnostics partition: %w", err)
	}
	defer src.Close()

	var r io.Reader = &ctxReader{ctx: ctx, r: src}
	if d.MaxBytes > 0 {
		r = io.LimitReader(r, d.MaxBytes)
	}

	dst := filepath.Join(d.DestDir, DFXFileName)
	n, err := writeAtomic(ctx, dst, func(w io.Writer) (int64, error) {
		zw := lz4.NewWriter(w)
		n, err := io.Copy(zw, r)
		if err != nil {
			return n, err
		}
		return n, zw.Close()
	})
	if err != nil {
		return "", fmt.Errorf("failed to snapshot diagnostics partition: %w", err)
	}
	slog.Info("diagnostics partition saved", "device", d.Device, "path", dst, "bytes", n)
	return dst, nil
}

// writeAtomic creates the parent of path and atomically replaces path with
// what fn writes.
func writeAtomic(ctx context.Context, path string, fn func(io.Writer) (int64, error)) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return 0, errors.Wrap(errors.ErrCodePathCreation, "failed to create output directory", err)
	}
	return storage.WriteAtomic(path, 0o640, fn)
}

// ctxReader stops reading once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
