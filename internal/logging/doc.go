// Package logging assembles structured slog loggers and formatting helpers used
// by archeck.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so the query driver can tag log
// lines with the run ID, agent ID, and attempt number. The console handler
// folds agent and attempt into a readable subject ("Agent 003 (attempt 2)")
// and lists the remaining fields beneath the message.
//
// Log output goes to stderr by default; stdout is reserved for query results.
package logging
