// Package daemon runs the reelsmith background process: it enforces
// single-instance execution with a lock file, starts the workflow manager,
// and serves the HTTP API the CLI talks to.
package daemon
