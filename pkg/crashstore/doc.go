// Package crashstore reads and writes the persistent crash-memory record
// that survives a reboot: the reserve marker, the completion flags of the
// last collection cycle and the in-progress saving flag.
//
// The record is a fixed 32-byte little-endian layout protected by a CRC32.
// A missing, uninitialized or corrupt record is reported with
// errors.ErrCodeConfigurationAbsent so callers can treat it as "no prior state".
//
// Two backends are provided: File, for a regular file or a reserved block
// device partition, and Memory, for tests.
package crashstore
