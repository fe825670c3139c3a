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
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/NVIDIA/bootcheck/pkg/module"
)

// Command runs an external program to dump a subsystem. The program writes
// into $BOOTCHECK_DUMP_DIR; its stdout and stderr are captured next to it.
type Command struct {
	ID     string
	Covers module.Set
	Path   string
	Args   []string
	Env    []string
}

// Name implements Dumper.
func (c *Command) Name() string { return c.ID }

// Modules implements Dumper.
func (c *Command) Modules() module.Set { return c.Covers }

// Dump implements Dumper.
func (c *Command) Dump(ctx context.Context, job Job) error {
	stdout, err := os.Create(filepath.Join(job.Dir, "stdout.log"))
	if err != nil {
		return fmt.Errorf("failed to create stdout log: %w", err)
	}
	defer stdout.Close()

	stderr, err := os.Create(filepath.Join(job.Dir, "stderr.log"))
	if err != nil {
		return fmt.Errorf("failed to create stderr log: %w", err)
	}
	defer stderr.Close()

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = job.Dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Env = append(append(os.Environ(), c.Env...),
		"BOOTCHECK_DUMP_DIR="+job.Dir,
		"BOOTCHECK_MODID="+strconv.FormatUint(uint64(job.ModID), 16),
		"BOOTCHECK_REASON="+job.Type.String(),
		"BOOTCHECK_SUBTYPE="+strconv.FormatUint(uint64(job.Subtype), 10),
		"BOOTCHECK_MODULES="+strings.Join(job.Modules.Names(), ","),
		"BOOTCHECK_CORE="+strings.Join(job.Core.Names(), ","),
	)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("dump command %s failed: %w", c.Path, err)
	}
	return nil
}
