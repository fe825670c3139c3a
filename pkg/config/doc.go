// Package config loads the bootcheckd configuration.
//
// Values come from, in increasing precedence: built-in defaults (mostly from
// pkg/defaults), the YAML file (default /etc/bootcheck/bootcheck.yaml) and
// BOOTCHECK_-prefixed environment variables, where nested keys are joined
// with underscores:
//
//	BOOTCHECK_DRAIN_MAX_REGISTRATION_WAIT=5m
//	BOOTCHECK_LOOP_GUARD_MAX_REBOOT_TIMES=3
//
// Example file:
//
//	storage:
//	  root: /data/log/bootcheck
//	  sentinel: /data/lost+found
//	crash_store:
//	  path: /dev/disk/by-partlabel/crashstore
//	archive:
//	  save_baseline: true
//	  max_count: 8
//	dumpers:
//	  commands:
//	    - name: modem
//	      modules: [modemap]
//	      path: /usr/libexec/bootcheck/modem-dump
//	      ready_unit: modem.service
//	report:
//	  configmap: cm://kube-system/bootcheck
//
// The loaded Config is validated before it is returned.
package config
