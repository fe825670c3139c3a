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

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/bootcheck/pkg/config"
	"github.com/NVIDIA/bootcheck/pkg/finalizer"
	"github.com/NVIDIA/bootcheck/pkg/report"
	"github.com/NVIDIA/bootcheck/pkg/serializer"
)

type archiveEntry struct {
	Name     string `json:"name" yaml:"name"`
	Path     string `json:"path" yaml:"path"`
	Size     string `json:"size" yaml:"size"`
	Complete bool   `json:"complete" yaml:"complete"`
	ModID    string `json:"modId,omitempty" yaml:"modId,omitempty"`
	Reason   string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

type archiveList struct {
	Root     string         `json:"root" yaml:"root"`
	Archives []archiveEntry `json:"archives" yaml:"archives"`
}

func archivesCmd() *cli.Command {
	return &cli.Command{
		Name:      "archives",
		Usage:     "List crash archives or render one as text",
		ArgsUsage: "[NAME]",
		Description: `Without arguments lists the crash archives under the storage root, oldest
first, with their size and incident. With an archive name prints that
archive's incident report in human-readable form.`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return err
			}

			if name := cmd.Args().First(); name != "" {
				r, err := report.Load(filepath.Join(cfg.Storage.Root, filepath.Base(name), report.FileName))
				if err != nil {
					return err
				}
				_, err = os.Stdout.Write(finalizer.Render(r))
				return err
			}

			format, err := parseOutputFormat(cmd)
			if err != nil {
				return err
			}
			list, err := listArchives(cfg.Storage.Root)
			if err != nil {
				return err
			}

			ser := serializer.NewWriter(format, os.Stdout)
			return ser.Serialize(ctx, list)
		},
	}
}

func listArchives(root string) (*archiveList, error) {
	infos, err := finalizer.ListArchives(root)
	if err != nil {
		return nil, fmt.Errorf("failed to list archives: %w", err)
	}

	list := &archiveList{Root: root, Archives: []archiveEntry{}}
	for _, a := range infos {
		e := archiveEntry{
			Name:     a.Name,
			Path:     a.Dir,
			Size:     humanize.IBytes(uint64(a.Size)),
			Complete: a.Complete,
		}
		if r, err := report.Load(filepath.Join(a.Dir, report.FileName)); err == nil {
			e.ModID = r.Incident.ModID
			e.Reason = r.Incident.Reason
		} else {
			slog.Debug("archive has no readable report", "archive", a.Name, "error", err)
		}
		list.Archives = append(list.Archives, e)
	}
	return list, nil
}
