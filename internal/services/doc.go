// Package services defines shared utilities consumed by the framed channel,
// the query driver and the CLI.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, agent identifiers and attempt
//     numbers for logging.
//   - The closed failure taxonomy (Kind) and the classified Error type that
//     lets the driver separate retryable failures from terminal ones without
//     inspecting message text.
//
// Use these helpers when adding new failure paths so retry policy and
// operator-facing messages stay uniform.
package services
