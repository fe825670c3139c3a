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
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/NVIDIA/bootcheck/pkg/module"
	"github.com/NVIDIA/bootcheck/pkg/parser"
	"gopkg.in/yaml.v3"
)

// Default pstore dumper sources.
const (
	DefaultPstoreDir   = "/sys/fs/pstore"
	DefaultCmdlinePath = "/proc/cmdline"
)

// Pstore copies the kernel's persistent-store records (console and panic
// logs of the crashed session) and the boot parameters into the archive.
type Pstore struct {
	ID          string
	Covers      module.Set
	Dir         string
	CmdlinePath string
	// MaxFileSize skips records larger than this. Zero means no limit.
	MaxFileSize int64
}

// NewPstore returns a Pstore dumper for the AP modules with default sources.
func NewPstore() *Pstore {
	return &Pstore{
		ID:          "pstore",
		Covers:      module.AllAP,
		Dir:         DefaultPstoreDir,
		CmdlinePath: DefaultCmdlinePath,
	}
}

// Name implements Dumper.
func (p *Pstore) Name() string { return p.ID }

// Modules implements Dumper.
func (p *Pstore) Modules() module.Set { return p.Covers }

// Dump implements Dumper. An empty pstore is not an error.
func (p *Pstore) Dump(ctx context.Context, job Job) error {
	entries, err := os.ReadDir(p.Dir)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to list pstore %q: %w", p.Dir, err)
	}

	copied := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return fmt.Errorf("failed to stat pstore record %q: %w", e.Name(), err)
		}
		if p.MaxFileSize > 0 && info.Size() > p.MaxFileSize {
			slog.Warn("skipping oversized pstore record", "record", e.Name(), "size", info.Size())
			continue
		}
		if err := copyFile(filepath.Join(p.Dir, e.Name()), filepath.Join(job.Dir, e.Name())); err != nil {
			return err
		}
		copied++
	}
	slog.Debug("pstore records copied", "count", copied)

	if p.CmdlinePath == "" {
		return nil
	}
	params, err := parser.New(parser.WithFields()).ReadMap(p.CmdlinePath)
	if err != nil {
		return fmt.Errorf("failed to read boot parameters: %w", err)
	}
	b, err := yaml.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal boot parameters: %w", err)
	}
	if err := os.WriteFile(filepath.Join(job.Dir, "cmdline.yaml"), b, 0o640); err != nil {
		return fmt.Errorf("failed to write boot parameters: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %q: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %q: %w", src, err)
	}
	return out.Close()
}
