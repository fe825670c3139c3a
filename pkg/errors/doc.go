// Package errors provides structured error types for better observability
// and programmatic error handling across the application.
//
// Example usage:
//
//	err := errors.WrapWithContext(
//	    errors.ErrCodePathCreation,
//	    "failed to create crash archive",
//	    mkdirErr,
//	    map[string]any{
//	        "path": path,
//	        "incident": info.ModID,
//	    },
//	)
//
// Callers that need to branch on a classification use IsCode, which walks
// the cause chain:
//
//	if errors.IsCode(err, errors.ErrCodeConfigurationAbsent) {
//	    // no prior-state record; skip the save
//	}
package errors
