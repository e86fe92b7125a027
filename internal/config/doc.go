// Package config loads, normalizes, and validates Corella configuration
// from TOML files with environment variable overrides for secrets.
package config
