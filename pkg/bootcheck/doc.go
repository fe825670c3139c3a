// Package bootcheck runs the boot-time crash check.
//
// A Controller walks a fixed state machine once per boot:
//
//	START -> WAIT_STORAGE_READY -> CLASSIFY -> END
//	                                        -> LOOP_GUARD -> REBOOT
//	                                                      -> DRAIN -> FINALIZE -> END
//
// CLASSIFY decides from the reboot reason and the crash store whether the
// previous session left anything to collect. LOOP_GUARD counts consecutive
// self-triggered reboots and may divert the device to the fallback target,
// which ends the run. DRAIN waits for dumpers to register and collects their
// output into a fresh archive, FINALIZE seals it, and END clears the crash
// store.
//
// Every state is reported to the service manager and timed in
// bootcheck_stage_duration_seconds.
package bootcheck
