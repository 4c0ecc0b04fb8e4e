// Package logging assembles structured slog loggers and formatting helpers used
// across streamdigest components.
//
// It owns the console/JSON handlers, centralizes level and output plumbing, and
// exposes context-aware helpers so pipeline code can tag log lines with run
// IDs, phases, and batch indices. Failures in the delivery pipeline surface as
// log lines rather than retries, so every component logs through here.
package logging
