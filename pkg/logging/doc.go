// Package logging provides structured logging utilities for bootcheck components.
//
// # Overview
//
// This package wraps the standard library slog package with bootcheck-specific defaults
// and conventions for consistent logging across all components. It supports
// environment-based log level configuration, module/version context injection,
// and automatic source location tracking for debug logs.
//
// # Features
//
//   - Structured JSON logging to stderr
//   - Environment-based log level configuration (LOG_LEVEL)
//   - Automatic module and version context
//   - Source location tracking for debug logs
//   - Flexible log level parsing
//   - Integration with standard library log package
//
// # Log Levels
//
// Supported log levels (case-insensitive):
//   - DEBUG: Detailed diagnostic information with source location
//   - INFO: General informational messages (default)
//   - WARN/WARNING: Warning messages for potentially problematic situations
//   - ERROR: Error messages for failures requiring attention
//
// # Usage
//
// Setting the default logger (recommended):
//
//	func main() {
//	    logging.SetDefaultStructuredLogger("bootcheckd", "v1.0.0")
//	    defer slog.Info("application started")
//
//	    // Use slog as normal
//	    slog.Info("classifying previous reboot", "reason", "0x14")
//	    slog.Debug("crash header", "header", hdr)
//	    slog.Error("operation failed", "error", err)
//	}
//
// Creating a custom logger:
//
//	logger := logging.NewStructuredLogger("bootcheckd", "v2.0.0", "debug")
//	logger.Info("controller starting", "state", "START")
//
// Setting explicit log level:
//
//	logging.SetDefaultStructuredLoggerWithLevel("bootcheckd", "v1.0.0", "warn")
//
// # Environment Configuration
//
// The LOG_LEVEL environment variable controls logging verbosity:
//
//	LOG_LEVEL=debug bootcheckd
//	LOG_LEVEL=error bootcheckd --config /etc/bootcheck/bootcheck.yaml
//
// If LOG_LEVEL is not set, defaults to INFO level.
//
// # Output Format
//
// All logs are written to stderr in JSON format:
//
//	{
//	    "time": "2025-01-15T10:30:00.123Z",
//	    "level": "INFO",
//	    "msg": "crash archive finalized",
//	    "module": "bootcheckd",
//	    "version": "v1.0.0",
//	    "path": "/data/log/reliability/20250115103000-ab12"
//	}
//
// Debug logs include source location:
//
//	{
//	    "time": "2025-01-15T10:30:00.123Z",
//	    "level": "DEBUG",
//	    "source": {
//	        "function": "orchestrator.(*Orchestrator).Drain",
//	        "file": "orchestrator.go",
//	        "line": 112
//	    },
//	    "msg": "waiting for module registration",
//	    "module": "bootcheckd",
//	    "version": "v1.0.0"
//	}
//
// # Best Practices
//
// 1. Set default logger early in main():
//
//	func main() {
//	    logging.SetDefaultStructuredLogger("bootcheckd", version)
//	    defer slog.Info("application started")
//	    // ...
//	}
//
// 2. Include context in log messages:
//
//	slog.Info("dump round complete",
//	    "requested", info.Mask.String(),
//	    "completed", completed.String(),
//	    "round", round,
//	)
//
// 3. Use appropriate log levels:
//
//	slog.Debug("registry snapshot", "mask", m)   // Development/troubleshooting
//	slog.Info("crash archive created")          // Normal operations
//	slog.Warn("partial dump completion")        // Potential issues
//	slog.Error("failed to create archive path") // Errors requiring action
//
// 4. Log errors with context:
//
//	slog.Error("failed to persist reboot counter",
//	    "error", err,
//	    "path", counterPath,
//	    "count", count,
//	)
//
// # Integration
//
// This package is used by:
//   - pkg/cli - process entry point logging
//   - pkg/bootcheck - controller state transitions
//   - pkg/orchestrator - dump rounds and registration waits
//   - pkg/loopguard - reboot counter and fallback decisions
//   - pkg/finalizer - archive creation, markers and retention
//
// All components share consistent logging format and configuration.
package logging
