// Package api defines the transport-friendly job representations shared by
// the daemon HTTP server and the CLI, plus the service layer that maps
// requests onto queue operations.
package api
