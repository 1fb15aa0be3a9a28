package services

import "context"

type contextKey string

const (
	agentIDKey contextKey = "agent_id"
	attemptKey contextKey = "attempt"
	runIDKey   contextKey = "run_id"
)

// WithAgentID annotates context with the agent identifier being queried.
func WithAgentID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, agentIDKey, id)
}

// AgentIDFromContext extracts the agent identifier if present.
func AgentIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(agentIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithAttempt annotates context with the 1-based attempt number.
func WithAttempt(ctx context.Context, attempt int) context.Context {
	if attempt <= 0 {
		return ctx
	}
	return context.WithValue(ctx, attemptKey, attempt)
}

// AttemptFromContext returns the attempt number if present.
func AttemptFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(attemptKey).(int)
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}

// WithRunID annotates context with the batch run correlation identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run correlation identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
