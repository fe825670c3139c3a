// Package parser splits small text sources into entries and key/value pairs.
//
// It is used for the kernel command line, procfs and sysfs files and the
// plain-text markers bootcheck reads during early boot.
//
//	p := parser.New(parser.WithFields())
//	params, err := p.ReadMap("/proc/cmdline")
//	reason := params["reboot_reason"]
package parser
