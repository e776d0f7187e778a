// Package logging wraps log/slog with the attribute helpers, standardized
// field keys, and handler construction shared across sitelog.
package logging
