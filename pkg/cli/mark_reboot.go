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
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/bootcheck/pkg/config"
	"github.com/NVIDIA/bootcheck/pkg/crashstore"
)

func markRebootCmd() *cli.Command {
	return &cli.Command{
		Name:  "mark-reboot",
		Usage: "Flag the next boot as a self-triggered crash reboot",
		Description: `Stamps the unexpected-reboot marker into the crash store. Crash handlers
run this right before forcing a reboot so the next boot counts towards
the reboot-loop ceiling.`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return err
			}
			store := crashstore.NewFile(cfg.CrashStore.Path, cfg.CrashStore.Offset)
			if err := crashstore.MarkUnexpectedReboot(ctx, store); err != nil {
				return err
			}
			slog.Info("unexpected reboot marker set", "path", cfg.CrashStore.Path)
			return nil
		},
	}
}
