// Package errors provides the classified error primitives used across goldenhour.
//
// Every failure inside the scheduling core is absorbed where it happens and
// surfaced as a log line, so the classification mostly drives log levels,
// metric labels and CLI exit codes rather than control flow.
//
// Key features:
//   - ErrorCategory: Broad error classification (astronomy, apply, location, state, config, ...)
//   - ErrorSeverity: Impact level (fatal, error, warning, info)
//   - RetryStrategy: How the failure heals (never, next cycle, user action)
//   - ClassifiedError: Structured error with category, severity, and context
//   - ErrorBuilder: Fluent API for creating classified errors
//   - CLIErrorAdapter: exit codes and messages for cmd/goldenhour
//
// Example usage:
//
//	err := errors.ApplyError("asset index write failed").
//		WithCause(writeErr).
//		WithContext("path", indexPath).
//		Build()
package errors
