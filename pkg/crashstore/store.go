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

package crashstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/NVIDIA/bootcheck/pkg/errors"
)

// Store is the persistent crash-memory region.
type Store interface {
	// ReadHeader returns the stored header or an ErrCodeConfigurationAbsent error.
	ReadHeader(ctx context.Context) (Header, error)
	// WriteHeader persists h.
	WriteHeader(ctx context.Context, h Header) error
	// Clear ends the cycle: see Cleared. An unreadable region is reset to Clean.
	Clear(ctx context.Context) error
}

// Update reads the header, applies fn and writes the result back.
// An unreadable header is replaced by the clean baseline before fn runs.
func Update(ctx context.Context, s Store, fn func(*Header)) error {
	h, err := s.ReadHeader(ctx)
	if err != nil {
		if !errors.IsCode(err, errors.ErrCodeConfigurationAbsent) {
			return err
		}
		slog.Warn("crash store unreadable, rewriting from clean baseline", "error", err)
		h = Clean()
	}
	fn(&h)
	return s.WriteHeader(ctx, h)
}

func clearCycle(ctx context.Context, s Store) error {
	return Update(ctx, s, func(h *Header) {
		*h = Cleared(*h)
	})
}

// MarkUnexpectedReboot stamps the reserve marker ahead of a forced reboot.
func MarkUnexpectedReboot(ctx context.Context, s Store) error {
	return Update(ctx, s, func(h *Header) {
		h.Reserve = UnexpectedRebootMarker
	})
}

// Memory is an in-process Store. The zero value reads as uninitialized.
type Memory struct {
	mu  sync.Mutex
	raw []byte
}

// NewMemory returns a Memory store holding h.
func NewMemory(h Header) *Memory {
	return &Memory{raw: Encode(h)}
}

// ReadHeader implements Store.
func (m *Memory) ReadHeader(context.Context) (Header, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Decode(m.raw)
}

// WriteHeader implements Store.
func (m *Memory) WriteHeader(_ context.Context, h Header) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw = Encode(h)
	return nil
}

// Clear implements Store.
func (m *Memory) Clear(ctx context.Context) error {
	return clearCycle(ctx, m)
}

// Corrupt flips a byte of the stored record.
func (m *Memory) Corrupt() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.raw) > 8 {
		m.raw[8] ^= 0xFF
	}
}

// File is a Store backed by a file or a reserved block device partition.
type File struct {
	Path string
	// Offset of the record within Path.
	Offset int64
}

// NewFile returns a File store at path.
func NewFile(path string, offset int64) *File {
	return &File{Path: path, Offset: offset}
}

// ReadHeader implements Store. A missing file is ErrCodeConfigurationAbsent.
func (f *File) ReadHeader(ctx context.Context) (Header, error) {
	if err := ctx.Err(); err != nil {
		return Header{}, err
	}
	fh, err := os.Open(f.Path)
	if err != nil {
		return Header{}, errors.WrapWithContext(errors.ErrCodeConfigurationAbsent,
			"failed to open crash store", err, map[string]any{"path": f.Path})
	}
	defer fh.Close()

	b := make([]byte, Size)
	n, err := fh.ReadAt(b, f.Offset)
	if err != nil && err != io.EOF {
		return Header{}, errors.WrapWithContext(errors.ErrCodeConfigurationAbsent,
			"failed to read crash store", err, map[string]any{"path": f.Path})
	}
	return Decode(b[:n])
}

// WriteHeader implements Store. Writes are synchronous.
func (f *File) WriteHeader(ctx context.Context, h Header) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fh, err := os.OpenFile(f.Path, os.O_RDWR|os.O_CREATE|os.O_SYNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open crash store %q: %w", f.Path, err)
	}
	if _, err := fh.WriteAt(Encode(h), f.Offset); err != nil {
		fh.Close()
		return fmt.Errorf("failed to write crash store %q: %w", f.Path, err)
	}
	return fh.Close()
}

// Clear implements Store.
func (f *File) Clear(ctx context.Context) error {
	return clearCycle(ctx, f)
}
