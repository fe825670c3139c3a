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

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/bootcheck/pkg/bootcheck"
	"github.com/NVIDIA/bootcheck/pkg/config"
	"github.com/NVIDIA/bootcheck/pkg/serializer"
)

func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}
	if cmd.Bool("dry-run-sync") {
		cfg.Archive.BlockingSync = false
	}

	var summaryFormat serializer.Format
	if cmd.String("summary") != "" {
		if summaryFormat, err = parseOutputFormat(cmd); err != nil {
			return err
		}
	}

	// Dumper registration outlives the controller run only until it returns.
	dumpCtx, stopDumpers := context.WithCancel(ctx)
	deps, err := build(dumpCtx, cfg)
	if err != nil {
		stopDumpers()
		return err
	}
	defer deps.close()

	res, runErr := deps.controller.Run(ctx)

	stopDumpers()
	deps.registrar.Wait()

	if path := cfg.Metrics.Textfile; path != "" {
		if err := bootcheck.WriteMetrics(path); err != nil {
			slog.Warn("failed to write metrics textfile", "path", path, "error", err)
		}
	}

	if out := cmd.String("summary"); out != "" && res != nil {
		if err := writeSummary(ctx, res.Summary(version), summaryFormat, out, cfg.Report.Kubeconfig); err != nil {
			slog.Warn("failed to write run summary", "output", out, "error", err)
		}
	}

	if runErr != nil {
		return fmt.Errorf("boot check failed: %w", runErr)
	}
	return nil
}

func writeSummary(ctx context.Context, s *bootcheck.Summary, format serializer.Format, out, kubeconfig string) error {
	ser := serializer.NewFileWriterOrStdout(format, out, serializer.WithKubeconfig(kubeconfig))
	defer func() {
		if closer, ok := ser.(serializer.Closer); ok {
			if err := closer.Close(); err != nil {
				slog.Warn("failed to close serializer", "error", err)
			}
		}
	}()
	return ser.Serialize(ctx, s)
}
