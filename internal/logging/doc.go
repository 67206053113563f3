// Package logging assembles the structured slog loggers used across Darkroom
// services.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can
// automatically tag log lines with record IDs, batch IDs, stages, and
// correlation IDs. The package also provides retention pruning for per-run
// log files and a no-op logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so new components
// emit data with the same shape and routing guarantees as the rest of the
// system.
package logging
