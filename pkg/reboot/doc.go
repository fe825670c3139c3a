// Package reboot restarts the device into a named boot target, such as the
// fallback recovery target entered after repeated crash reboots.
package reboot
