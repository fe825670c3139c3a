// Package serializer writes bootcheck documents (incident reports,
// baselines, run summaries) as JSON, YAML or a flattened table.
//
// Destinations:
//
//	w := serializer.NewFileWriterOrStdout(serializer.FormatYAML, "/data/log/report.yaml")
//	w := serializer.NewFileWriterOrStdout(serializer.FormatYAML, "cm://kube-system/bootcheck-node-1")
//
// ConfigMap destinations are applied with Server-Side Apply so repeated
// publishes update the same object.
package serializer
