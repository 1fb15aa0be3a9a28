package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mranv/agentARChecker/internal/arquery"
	"github.com/mranv/agentARChecker/internal/services"
)

// Run is one batch invocation.
type Run struct {
	ID         string
	Endpoint   string
	StartedAt  time.Time
	FinishedAt time.Time
	Succeeded  int
	Failed     int
}

// Outcome is the terminal result recorded for one agent within a run.
type Outcome struct {
	ID         int64
	RunID      string
	Agent      string
	State      string
	Attempts   int
	Status     string
	Body       string
	Error      string
	ErrorKind  string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Filter narrows Recent.
type Filter struct {
	Agent string
	Limit int
}

const defaultLimit = 20

// FromSummary converts a driver summary into rows.
func FromSummary(summary arquery.Summary, endpoint string) (Run, []Outcome) {
	run := Run{
		ID:        summary.RunID,
		Endpoint:  endpoint,
		Succeeded: summary.Succeeded,
		Failed:    summary.Failed,
	}
	outcomes := make([]Outcome, 0, len(summary.Results))
	for _, result := range summary.Results {
		if run.StartedAt.IsZero() || result.Started.Before(run.StartedAt) {
			run.StartedAt = result.Started
		}
		if result.Finished.After(run.FinishedAt) {
			run.FinishedAt = result.Finished
		}
		outcome := Outcome{
			RunID:      summary.RunID,
			Agent:      result.Agent,
			State:      result.State.String(),
			Attempts:   result.Attempts,
			Status:     result.Response.Status,
			Body:       result.Response.Body,
			StartedAt:  result.Started,
			FinishedAt: result.Finished,
		}
		if result.Err != nil {
			outcome.Error = result.Err.Error()
			outcome.ErrorKind = services.KindOf(result.Err).String()
		}
		outcomes = append(outcomes, outcome)
	}
	return run, outcomes
}

// Record stores a run and its outcomes in one transaction.
func (s *Store) Record(ctx context.Context, run Run, outcomes []Outcome) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("record run: missing run id")
	}
	return retryOnBusy(ctx, func() error {
		return s.record(ctx, run, outcomes)
	})
}

func (s *Store) record(ctx context.Context, run Run, outcomes []Outcome) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, endpoint, started_at, finished_at, succeeded, failed) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Endpoint, formatTime(run.StartedAt), formatTime(run.FinishedAt), run.Succeeded, run.Failed,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO outcomes (run_id, agent_id, state, attempts, status, body, error, error_kind, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare outcome insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range outcomes {
		if _, err := stmt.ExecContext(ctx,
			run.ID, o.Agent, o.State, o.Attempts, o.Status, o.Body, o.Error, o.ErrorKind,
			formatTime(o.StartedAt), formatTime(o.FinishedAt),
		); err != nil {
			return fmt.Errorf("insert outcome for agent %s: %w", o.Agent, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record: %w", err)
	}
	return nil
}

// Recent returns the newest outcomes first.
func (s *Store) Recent(ctx context.Context, filter Filter) ([]Outcome, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	query := `SELECT id, run_id, agent_id, state, attempts, status, body, error, error_kind, started_at, finished_at
		FROM outcomes`
	args := []any{}
	if agent := strings.TrimSpace(filter.Agent); agent != "" {
		query += " WHERE agent_id = ?"
		args = append(args, agent)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	var outcomes []Outcome
	err := retryOnBusy(ctx, func() error {
		outcomes = outcomes[:0]
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				o                 Outcome
				started, finished string
			)
			if err := rows.Scan(&o.ID, &o.RunID, &o.Agent, &o.State, &o.Attempts, &o.Status, &o.Body,
				&o.Error, &o.ErrorKind, &started, &finished); err != nil {
				return err
			}
			o.StartedAt = parseTime(started)
			o.FinishedAt = parseTime(finished)
			outcomes = append(outcomes, o)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	return outcomes, nil
}

// Runs returns the newest runs first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	var runs []Run
	err := retryOnBusy(ctx, func() error {
		runs = runs[:0]
		rows, err := s.db.QueryContext(ctx,
			`SELECT run_id, endpoint, started_at, finished_at, succeeded, failed
			 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				r                 Run
				started, finished string
			)
			if err := rows.Scan(&r.ID, &r.Endpoint, &started, &finished, &r.Succeeded, &r.Failed); err != nil {
				return err
			}
			r.StartedAt = parseTime(started)
			r.FinishedAt = parseTime(finished)
			runs = append(runs, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}
