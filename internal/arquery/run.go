package arquery

import (
	"context"
	"fmt"

	"github.com/mranv/agentARChecker/internal/logging"
	"github.com/mranv/agentARChecker/internal/services"
)

// Run processes ids sequentially, in input order, and returns one Result per
// identifier. A failed identifier never stops the batch. Once ctx is done the
// remaining identifiers fail without touching the socket.
func (d *Driver) Run(ctx context.Context, ids []string, reporter Reporter) Summary {
	if reporter == nil {
		reporter = nopReporter{}
	}
	summary := Summary{Results: make([]Result, 0, len(ids))}
	summary.RunID, _ = services.RunIDFromContext(ctx)

	for _, id := range ids {
		result := d.process(ctx, id, reporter)
		summary.Results = append(summary.Results, result)
		if result.Succeeded() {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	d.logger.Info("run complete",
		logging.String(logging.FieldRunID, summary.RunID),
		logging.Int("agents", len(ids)),
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("failed", summary.Failed),
	)
	return summary
}

// process walks one identifier through
// Pending -> Attempting -> {Succeeded | Waiting -> Attempting | Failed}.
func (d *Driver) process(ctx context.Context, id string, reporter Reporter) Result {
	agentCtx := services.WithAgentID(ctx, id)
	result := Result{Agent: id, State: StatePending, Started: d.now()}
	emit := func(ev Event) {
		ev.Agent = id
		ev.MaxAttempts = d.policy.MaxAttempts
		reporter.Report(ev)
	}
	emit(Event{State: StatePending})

	for {
		switch result.State {
		case StatePending:
			if err := ctx.Err(); err != nil {
				result.Err = fmt.Errorf("agent %s not queried: %w", id, err)
				result.State = StateFailed
				continue
			}
			result.State = StateAttempting

		case StateAttempting:
			result.Attempts++
			attemptCtx := services.WithAttempt(agentCtx, result.Attempts)
			emit(Event{State: StateAttempting, Attempt: result.Attempts})

			resp, err := d.QueryOne(attemptCtx, id)
			result.Response = resp
			result.Err = err
			switch {
			case err == nil:
				result.State = StateSucceeded
			case ctx.Err() != nil:
				result.Err = fmt.Errorf("%w (%w)", err, ctx.Err())
				result.State = StateFailed
			case !services.Retryable(err):
				result.State = StateFailed
			case result.Attempts >= d.policy.MaxAttempts:
				result.State = StateFailed
			default:
				result.State = StateWaiting
			}

		case StateWaiting:
			logger := logging.WithContext(services.WithAttempt(agentCtx, result.Attempts), d.logger)
			logging.WarnWithContext(logger, "agent query failed; retrying", "retry_scheduled",
				logging.Error(result.Err),
				logging.ErrorKind(result.Err),
				logging.Duration("delay", d.policy.Delay),
				logging.String(logging.FieldErrorHint, Hint(result.Err)),
			)
			emit(Event{State: StateWaiting, Attempt: result.Attempts, Err: result.Err, Delay: d.policy.Delay})
			if err := d.sleep(ctx, d.policy.Delay); err != nil {
				result.Err = fmt.Errorf("%w (retry abandoned: %w)", result.Err, err)
				result.State = StateFailed
				continue
			}
			result.State = StateAttempting

		case StateSucceeded, StateFailed:
			result.Finished = d.now()
			d.logOutcome(agentCtx, result)
			emit(Event{State: result.State, Attempt: result.Attempts, Err: result.Err, Response: result.Response})
			return result
		}
	}
}

func (d *Driver) logOutcome(ctx context.Context, result Result) {
	logger := logging.WithContext(services.WithAttempt(ctx, result.Attempts), d.logger)
	if result.Succeeded() {
		logger.Info("agent query succeeded",
			logging.String("status", result.Response.Status),
			logging.Duration("elapsed", result.Duration()),
		)
		return
	}
	logging.ErrorWithContext(logger, "agent query failed", "query_failed",
		logging.Error(result.Err),
		logging.ErrorKind(result.Err),
		logging.String(logging.FieldErrorHint, Hint(result.Err)),
	)
}
