// Package cli implements the bootcheckd command line.
//
// # Usage
//
// The root command runs the boot-time crash check once and exits:
//
//	bootcheckd [--config FILE] [--log-level LEVEL] [--dry-run-sync] [--summary OUT]
//
// It builds every component from the configuration file (see package config),
// starts the built-in dumpers in the background and runs the controller. With
// --summary the run summary is written to a file or a ConfigMap
// (cm://namespace/name) in the --format encoding.
//
// mark-reboot - Flag the next boot as self-triggered:
//
//	bootcheckd mark-reboot
//
// archives - Inspect collected archives:
//
//	bootcheckd archives [--format yaml|json|table]
//	bootcheckd archives 20261019T101010Z-6f1c...
//
// # Global Flags
//
//	--config, -c     Configuration file (default /etc/bootcheck/bootcheck.yaml, env BOOTCHECK_CONFIG)
//	--log-level      debug, info, warn, error (env LOG_LEVEL)
//	--format, -t     Output format: yaml, json, table
//	--help, -h       Show command help
//	--version, -v    Show version information
package cli
