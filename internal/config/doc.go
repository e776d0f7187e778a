// Package config loads, normalizes, and validates the sitelog TOML
// configuration shared by the daemon and the CLI.
package config
