// Package loopguard detects crash-reboot loops.
//
// Each boot whose previous reboot was self-triggered increments a persisted
// counter; any other boot resets it. Once the counter exceeds the ceiling
// the guard records the fallback reason tag, resets the counter and requests
// a reboot into the fallback recovery target.
//
// The counter is a small YAML file stamped with the kernel boot id so a
// restarted controller never counts the same boot twice.
package loopguard
