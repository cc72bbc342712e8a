// Package services defines shared utilities consumed by the pipeline stage
// handlers and the external vendor integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify vendor
//     failures, and Details which reduces any error to a sanitized message
//     safe to persist on a job and return to clients.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability, retries) stays uniform across the pipeline.
package services
