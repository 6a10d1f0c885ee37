// Package logging centralizes slog construction and shared attribute
// helpers. It provides a console handler for interactive use, a JSON handler
// for machine consumption, and context helpers that stamp job and component
// fields onto log records.
package logging
