// Package logging wraps log/slog with the conventions the daemon and CLI
// share: console or JSON output, standardized field keys, and helpers that
// derive structured fields from a request context.
package logging
