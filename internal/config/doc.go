// Package config loads, normalizes, and validates doorman's TOML
// configuration. Defaults live in defaults.go and the annotated sample in
// sample_config.toml; Load applies the file over the defaults and expands
// every path field.
package config
