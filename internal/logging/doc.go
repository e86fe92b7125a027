// Package logging provides slog construction with console and JSON handlers
// plus shared attribute helpers.
package logging
