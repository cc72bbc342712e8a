// Package config loads, validates, and normalizes the TOML configuration
// shared by the reelsmith daemon and CLI.
package config
