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

package finalizer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"
)

// ArchiveInfo describes an archive directory under the root.
type ArchiveInfo struct {
	Name     string
	Dir      string
	Size     int64
	Complete bool
}

// ListArchives returns the archives under root, oldest first. Names start
// with a UTC timestamp so lexical order is creation order.
func ListArchives(root string) ([]ArchiveInfo, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list archives in %s: %w", root, err)
	}

	var out []ArchiveInfo
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		size, err := dirSize(dir)
		if err != nil {
			slog.Warn("failed to size archive", "dir", dir, "error", err)
		}
		_, statErr := os.Stat(filepath.Join(dir, DoneMarker))
		out = append(out, ArchiveInfo{
			Name:     e.Name(),
			Dir:      dir,
			Size:     size,
			Complete: statErr == nil,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
		}
		return nil
	})
	return total, err
}

// Retain removes the oldest archives until both retention limits hold. The
// current archive is never removed. It returns the names of removed archives.
func (f *Finalizer) Retain(ctx context.Context, current string) ([]string, error) {
	archives, err := ListArchives(f.root)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, a := range archives {
		total += a.Size
	}
	count := len(archives)

	slog.Info("crash archive usage",
		"count", count,
		"size", humanize.IBytes(uint64(total)),
		"max_count", f.maxCount,
		"max_size", humanize.IBytes(uint64(f.maxBytes)))

	var removed []string
	for _, a := range archives {
		if !f.overLimit(count, total) {
			break
		}
		if a.Name == current {
			continue
		}
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if err := os.RemoveAll(a.Dir); err != nil {
			return removed, fmt.Errorf("failed to remove archive %s: %w", a.Name, err)
		}
		slog.Info("removed old crash archive", "name", a.Name, "size", humanize.IBytes(uint64(a.Size)))
		removed = append(removed, a.Name)
		count--
		total -= a.Size
	}
	return removed, nil
}

func (f *Finalizer) overLimit(count int, total int64) bool {
	if f.maxCount > 0 && count > f.maxCount {
		return true
	}
	return f.maxBytes > 0 && total > f.maxBytes
}
