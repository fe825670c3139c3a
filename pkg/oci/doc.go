// Package oci pushes finalized crash archives to OCI-compliant registries.
//
// An archive directory is packed into a single gzip layer under an OCI 1.1
// manifest with the artifact type "application/vnd.nvidia.bootcheck.archive"
// and copied to the registry with ORAS.
//
// Targets use the oci:// scheme:
//
//	ref, err := oci.ParseReference("oci://ghcr.io/nvidia/crash")
//	if err != nil {
//	    return err
//	}
//	res, err := oci.Push(ctx, oci.PushOptions{
//	    SourceDir:  archiveDir,
//	    Registry:   ref.Registry,
//	    Repository: ref.Repository,
//	    Tag:        oci.TagFor(filepath.Base(archiveDir)),
//	})
//
// Credentials are loaded from the Docker configuration (~/.docker/config.json)
// when present.
package oci
