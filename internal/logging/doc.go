// Package logging wraps log/slog with loom's attribute conventions.
//
// It provides the constructor used by the daemon and CLI, standardized field
// key constants, context-derived attribute extraction, and a no-op logger for
// tests and optional dependencies.
package logging
