// Package errors provides unified error handling for the lifecycle
// subsystem. It implements structured error types with error codes, HTTP
// status mapping, and retryable detection; discovery failures such as
// ServiceNotFound carry the currently-registered names so callers can
// fail fast with context.
package errors
