// Package systemd provides a dumper that records the D-Bus properties of the
// systemd units backing a subsystem, such as the positioning or WLAN
// daemons, into the crash archive.
package systemd
