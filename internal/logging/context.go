package logging

import (
	"context"
	"log/slog"

	"github.com/mranv/agentARChecker/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldAgentID is the standardized structured logging key for agent identifiers.
	FieldAgentID = "agent_id"
	// FieldAttempt is the 1-based attempt number within an agent's retry budget.
	FieldAttempt = "attempt"
	// FieldRunID correlates every line emitted by one batch run.
	FieldRunID = "run_id"
	// FieldEventType names the event for filtering (retry_scheduled, query_failed, ...).
	FieldEventType = "event_type"
	// FieldErrorHint suggests a next step to the operator.
	FieldErrorHint = "error_hint"
	// FieldErrorKind carries the failure classification.
	FieldErrorKind = "error_kind"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if id, ok := services.AgentIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldAgentID, id))
	}
	if attempt, ok := services.AttemptFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldAttempt, attempt))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
