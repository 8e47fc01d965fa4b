// Package logging builds slog loggers with doorman's console and JSON
// handlers and exposes the attribute helpers used across the codebase.
//
// Components receive child loggers via NewComponentLogger so every line
// carries a stable component field. Event-type and error-hint fields give
// operators something greppable when a cycle misbehaves.
package logging
