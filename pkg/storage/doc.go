// Package storage provides the crash log filesystem: waiting for the data
// partition to mount, creating incident archive directories, writing marker
// files and syncing.
//
// WaitForMount polls until a sentinel path exists and, optionally, the mount
// point appears in /proc/self/mountinfo. It waits forever unless MaxWait is
// set or the context is canceled.
package storage
