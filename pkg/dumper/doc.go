// Package dumper collects per-module diagnostic dumps into a crash archive.
//
// A Registry holds the dumpers that are currently able to take a dump.
// Subsystems come up asynchronously during boot, so dumpers are usually
// added by a Registrar once their readiness Probe passes:
//
//	reg := dumper.NewRegistry()
//	r := dumper.NewRegistrar(reg, clock.RealClock{}, time.Second)
//	r.Start(ctx, dumper.NewPstore(), dumper.Always())
//	r.Start(ctx, wlan, dumper.UnitReady(conn, "wlan-roam.service"))
//
// NotifyDump fans a request out to every matching dumper in parallel and
// returns the modules that completed. Failures are logged, never returned:
// the caller retries what is missing.
//
// Built-in dumpers:
//   - Command runs an external program per subsystem.
//   - Pstore copies the kernel's persistent-store records.
//   - systemd.Dumper records unit state over D-Bus.
package dumper
