// Package config loads, normalizes, and validates loom's TOML configuration.
//
// Configuration resolution order: an explicit --config path, then
// ~/.config/loom/config.toml, then built-in defaults. Path fields are
// tilde-expanded and made absolute during normalization so downstream code
// never deals with relative or user-relative paths.
package config
