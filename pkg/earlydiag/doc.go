// Package earlydiag captures diagnostics that exist only early in boot.
//
// BootFailRecord copies the record a failed bootloader stage leaves behind.
// It runs before the crash log filesystem is mounted, so its destination is
// a directory that is always writable.
//
// DFXSnapshot copies the head of the diagnostics (DFX) partition into an
// lz4 frame once storage is ready. The read is capped so a large partition
// cannot stall the boot.
//
// MntnDump keeps the maintenance dump of an abnormal reboot whose archive was
// already complete. The classifier calls it as its LogSaver.
package earlydiag
