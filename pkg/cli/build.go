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

	sdbus "github.com/coreos/go-systemd/v22/dbus"

	"github.com/NVIDIA/bootcheck/pkg/bootcheck"
	"github.com/NVIDIA/bootcheck/pkg/classifier"
	"github.com/NVIDIA/bootcheck/pkg/config"
	"github.com/NVIDIA/bootcheck/pkg/crashstore"
	"github.com/NVIDIA/bootcheck/pkg/dumper"
	"github.com/NVIDIA/bootcheck/pkg/dumper/systemd"
	"github.com/NVIDIA/bootcheck/pkg/earlydiag"
	"github.com/NVIDIA/bootcheck/pkg/finalizer"
	"github.com/NVIDIA/bootcheck/pkg/loopguard"
	"github.com/NVIDIA/bootcheck/pkg/module"
	"github.com/NVIDIA/bootcheck/pkg/orchestrator"
	"github.com/NVIDIA/bootcheck/pkg/reason"
	"github.com/NVIDIA/bootcheck/pkg/reboot"
	"github.com/NVIDIA/bootcheck/pkg/report"
	"github.com/NVIDIA/bootcheck/pkg/serializer"
	"github.com/NVIDIA/bootcheck/pkg/storage"
)

// deps is the wired controller and what must be released after it ran.
type deps struct {
	controller *bootcheck.Controller
	registrar  *dumper.Registrar
	closers    []func()
}

func (d *deps) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// build wires the controller from cfg and starts dumper registration.
// Registration stops when ctx is canceled.
func build(ctx context.Context, cfg *config.Config) (*deps, error) {
	fs := storage.New(cfg.Storage.Root, cfg.Storage.Sentinel)
	fs.MountPoint = cfg.Storage.MountPoint
	fs.PollInterval = cfg.Storage.PollInterval
	fs.MaxWait = cfg.Storage.MaxMountWait

	store := crashstore.NewFile(cfg.CrashStore.Path, cfg.CrashStore.Offset)

	src := &reason.Cmdline{
		Path:       cfg.Reason.CmdlinePath,
		CodeKey:    cfg.Reason.CodeKey,
		SubtypeKey: cfg.Reason.SubtypeKey,
	}
	clsOpts := []classifier.Option{
		classifier.WithCleartextFinalizer(finalizer.NewCleartext(cfg.Storage.Root, fs, store)),
	}
	if dump := cfg.EarlyDiag.MntnDumpSource; dump != "" {
		clsOpts = append(clsOpts, classifier.WithLogSaver(&earlydiag.MntnDump{
			Source:  dump,
			DestDir: cfg.Storage.Root,
		}))
	}
	cls := classifier.New(src, store, clsOpts...)

	rebooter := reboot.NewSystemd()
	rebooter.ParamPath = cfg.LoopGuard.RebootParamPath
	guard := loopguard.New(loopguard.Config{
		CounterPath: cfg.LoopGuard.CounterPath,
		ReasonPath:  cfg.LoopGuard.ReasonPath,
		BootIDPath:  cfg.LoopGuard.BootIDPath,
		Ceiling:     cfg.LoopGuard.MaxRebootTimes,
		Target:      cfg.LoopGuard.Target,
		ReasonTag:   cfg.LoopGuard.ReasonTag,
	}, rebooter)

	registry := dumper.NewRegistry(
		dumper.WithDumpTimeout(cfg.Drain.DumpTimeout),
		dumper.WithConcurrency(cfg.Drain.Concurrency))
	drainer := orchestrator.New(registry, registry,
		orchestrator.WithPollInterval(cfg.Drain.PollInterval),
		orchestrator.WithMaxRegistrationWait(cfg.Drain.MaxRegistrationWait))

	fin := finalizer.New(cfg.Storage.Root, fs, store,
		finalizer.WithVersion(version),
		finalizer.WithBaseline(cfg.Archive.SaveBaseline),
		finalizer.WithBlockingAllowed(cfg.Archive.BlockingSync),
		finalizer.WithRetention(cfg.Archive.MaxCount, cfg.Archive.MaxBytes))

	opts := []bootcheck.Option{
		bootcheck.WithNotifier(bootcheck.SystemdNotifier{}),
		bootcheck.WithVersion(version),
	}
	if src := cfg.EarlyDiag.BootFailSource; src != "" {
		opts = append(opts, bootcheck.WithBootFailCapture(&earlydiag.BootFailRecord{
			Source:  src,
			DestDir: cfg.EarlyDiag.LogDir,
		}))
	}
	if dev := cfg.EarlyDiag.DFXDevice; dev != "" {
		snap := earlydiag.NewDFXSnapshot(dev, cfg.Storage.Root)
		snap.MaxBytes = cfg.EarlyDiag.DFXMaxBytes
		opts = append(opts, bootcheck.WithDFXSnapshot(snap))
	}

	pub, err := newPublisher(cfg.Report)
	if err != nil {
		return nil, err
	}
	if pub.Enabled() {
		opts = append(opts, bootcheck.WithPublisher(pub))
	}

	d := &deps{
		controller: bootcheck.New(fs, store, cls, guard, drainer, fin, opts...),
		registrar:  dumper.NewRegistrar(registry, nil, cfg.Dumpers.ProbeInterval),
	}
	closer, err := startDumpers(ctx, cfg.Dumpers, d.registrar)
	if err != nil {
		return nil, err
	}
	d.closers = append(d.closers, closer)
	return d, nil
}

func newPublisher(cfg config.ReportConfig) (*report.Publisher, error) {
	var opts []report.Option
	if cfg.ConfigMap != "" {
		opts = append(opts, report.WithConfigMap(cfg.ConfigMap, serializer.Format(cfg.Format),
			serializer.WithKubeconfig(cfg.Kubeconfig)))
	}
	if cfg.Registry != "" {
		opts = append(opts, report.WithRegistry(cfg.Registry, cfg.PlainHTTP, cfg.InsecureTLS))
	}
	return report.NewPublisher(opts...)
}

// startDumpers hands every configured dumper to the registrar. The returned
// func releases the D-Bus connection used by unit readiness probes.
func startDumpers(ctx context.Context, cfg config.DumpersConfig, registrar *dumper.Registrar) (func(), error) {
	var conn *sdbus.Conn
	closer := func() {
		if conn != nil {
			conn.Close()
		}
	}

	if cfg.Pstore.Enabled {
		covers, err := module.ParseSet(cfg.Pstore.Modules)
		if err != nil {
			return nil, fmt.Errorf("invalid pstore dumper modules: %w", err)
		}
		p := dumper.NewPstore()
		p.Dir = cfg.Pstore.Dir
		p.Covers = covers
		registrar.Start(ctx, p, dumper.PathExists(p.Dir))
	}

	if cfg.Systemd.Enabled {
		covers, err := module.ParseSet(cfg.Systemd.Modules)
		if err != nil {
			return nil, fmt.Errorf("invalid systemd dumper modules: %w", err)
		}
		registrar.Start(ctx, &systemd.Dumper{
			ID:     "systemd",
			Covers: covers,
			Units:  cfg.Systemd.Units,
			Dial:   systemd.DialSystem,
		}, dumper.Always())
	}

	for _, c := range cfg.Commands {
		covers, err := module.ParseSet(c.Modules)
		if err != nil {
			return nil, fmt.Errorf("invalid modules for dumper %q: %w", c.Name, err)
		}

		var probe dumper.Probe
		switch {
		case c.ReadyPath != "":
			probe = dumper.PathExists(c.ReadyPath)
		case c.ReadyUnit != "":
			if conn == nil {
				conn, err = sdbus.NewSystemdConnectionContext(ctx)
				if err != nil {
					closer()
					return nil, fmt.Errorf("failed to connect to systemd for unit readiness: %w", err)
				}
			}
			probe = dumper.UnitReady(conn, c.ReadyUnit)
		}

		registrar.Start(ctx, &dumper.Command{
			ID:     c.Name,
			Covers: covers,
			Path:   c.Path,
			Args:   c.Args,
			Env:    c.Env,
		}, probe)
		slog.Debug("command dumper configured", "dumper", c.Name, "modules", covers.String())
	}

	return closer, nil
}
