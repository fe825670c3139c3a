// Package report builds the incident report stored in every crash archive
// and publishes it off the device.
//
// A Report carries the standard document header (kind IncidentReport) plus
// the incident identity, the module sets requested, completed and still
// remaining after the drain, and the archive location. It is written to
// report.yaml before the archive's DONE marker.
//
// A Publisher optionally sends the report to a ConfigMap (cm://namespace/name)
// and pushes the whole archive to an OCI registry (oci://registry/repository).
// Publishing runs after the archive is complete and never affects the boot.
package report
