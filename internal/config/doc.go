// Package config loads, normalizes, and validates the TOML configuration for
// the queue engine and its daemon.
package config
