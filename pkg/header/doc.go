// Package header provides the common header stamped on every document
// bootcheck writes: incident reports, crash-store baselines and run summaries.
//
// The header follows Kubernetes-style conventions:
//
//	kind: IncidentReport
//	apiVersion: bootcheck.nvidia.com/v1alpha1
//	metadata:
//	  timestamp: "2025-12-30T10:30:00Z"
//	  version: v0.4.0
//
// Create one with New:
//
//	h := header.New(header.KindIncidentReport, version,
//	    header.WithMetadata("incident", id))
//
// Consumers should check APIVersion before decoding the rest of a document.
package header
