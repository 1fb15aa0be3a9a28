package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/mranv/agentARChecker/internal/arquery"
	"github.com/mranv/agentARChecker/internal/history"
	"github.com/mranv/agentARChecker/internal/services"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type summaryJSON struct {
	RunID     string       `json:"run_id"`
	Endpoint  string       `json:"endpoint"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Results   []resultJSON `json:"results"`
}

type resultJSON struct {
	Agent      string `json:"agent"`
	State      string `json:"state"`
	Attempts   int    `json:"attempts"`
	Status     string `json:"status,omitempty"`
	Body       string `json:"body,omitempty"`
	Error      string `json:"error,omitempty"`
	ErrorKind  string `json:"error_kind,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

func newSummaryJSON(summary arquery.Summary, endpoint string) summaryJSON {
	out := summaryJSON{
		RunID:     summary.RunID,
		Endpoint:  endpoint,
		Succeeded: summary.Succeeded,
		Failed:    summary.Failed,
		Results:   make([]resultJSON, 0, len(summary.Results)),
	}
	for _, result := range summary.Results {
		item := resultJSON{
			Agent:      result.Agent,
			State:      result.State.String(),
			Attempts:   result.Attempts,
			Status:     result.Response.Status,
			Body:       result.Response.Body,
			DurationMS: result.Duration().Milliseconds(),
		}
		if result.Err != nil {
			item.Error = result.Err.Error()
			item.ErrorKind = services.KindOf(result.Err).String()
		}
		out.Results = append(out.Results, item)
	}
	return out
}

type outcomeJSON struct {
	RunID      string    `json:"run_id"`
	Agent      string    `json:"agent"`
	State      string    `json:"state"`
	Attempts   int       `json:"attempts"`
	Status     string    `json:"status,omitempty"`
	Body       string    `json:"body,omitempty"`
	Error      string    `json:"error,omitempty"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func newOutcomesJSON(outcomes []history.Outcome) []outcomeJSON {
	out := make([]outcomeJSON, 0, len(outcomes))
	for _, o := range outcomes {
		out = append(out, outcomeJSON{
			RunID:      o.RunID,
			Agent:      o.Agent,
			State:      o.State,
			Attempts:   o.Attempts,
			Status:     o.Status,
			Body:       o.Body,
			Error:      o.Error,
			ErrorKind:  o.ErrorKind,
			StartedAt:  o.StartedAt,
			FinishedAt: o.FinishedAt,
		})
	}
	return out
}

type runJSON struct {
	RunID      string    `json:"run_id"`
	Endpoint   string    `json:"endpoint"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
}

func newRunsJSON(runs []history.Run) []runJSON {
	out := make([]runJSON, 0, len(runs))
	for _, r := range runs {
		out = append(out, runJSON{
			RunID:      r.ID,
			Endpoint:   r.Endpoint,
			StartedAt:  r.StartedAt,
			FinishedAt: r.FinishedAt,
			Succeeded:  r.Succeeded,
			Failed:     r.Failed,
		})
	}
	return out
}
