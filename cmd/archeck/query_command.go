package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mranv/agentARChecker/internal/agentids"
	"github.com/mranv/agentARChecker/internal/arquery"
	"github.com/mranv/agentARChecker/internal/config"
	"github.com/mranv/agentARChecker/internal/history"
	"github.com/mranv/agentARChecker/internal/logging"
	"github.com/mranv/agentARChecker/internal/runlock"
	"github.com/mranv/agentARChecker/internal/services"
)

var errAgentsFailed = errors.New("agents failed")

type queryOptions struct {
	file     string
	json     bool
	noTable  bool
	attempts int
	delay    time.Duration
}

func (o *queryOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.file, "file", "f", "", "Read agent IDs from a file instead of stdin")
	cmd.Flags().BoolVar(&o.json, "json", false, "Print the run summary as JSON")
	cmd.Flags().BoolVar(&o.noTable, "no-table", false, "Skip the summary table")
	cmd.Flags().IntVar(&o.attempts, "attempts", 0, "Attempts per agent (overrides retry.max_attempts)")
	cmd.Flags().DurationVar(&o.delay, "delay", 0, "Pause between attempts (overrides retry.delay_ms)")
}

func newQueryCommand(ctx *commandContext) *cobra.Command {
	opts := &queryOptions{}
	cmd := &cobra.Command{
		Use:   "query [agent-id...]",
		Short: "Fetch the active-response configuration of the given agents",
		Long: "Fetch the active-response configuration of each agent.\n\n" +
			"IDs are taken from the arguments, from --file, or from stdin (one per line).\n" +
			"IDs are sent as given unless agents.id_width asks for zero-padding.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, ctx, args, opts)
		},
	}
	opts.bind(cmd)
	return cmd
}

func runQuery(cmd *cobra.Command, ctx *commandContext, args []string, opts *queryOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.logger(cmd)
	if err != nil {
		return err
	}

	ids, err := collectIDs(cmd, args, opts.file, cfg.Agents.IDWidth)
	if err != nil {
		return err
	}
	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()
	if len(ids) == 0 {
		fmt.Fprintln(stderr, "No agent IDs supplied; nothing to do.")
		return nil
	}

	lock, err := runlock.Acquire(cfg.LockPath())
	if err != nil {
		return err
	}
	logger.Debug("run lock acquired", logging.String("path", lock.Path()))
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("release run lock", logging.Error(err))
		}
	}()

	runID := uuid.NewString()
	runCtx := services.WithRunID(commandCtx(cmd), runID)

	var driverOpts []arquery.Option
	if opts.attempts > 0 || opts.delay > 0 {
		policy := arquery.Policy{MaxAttempts: cfg.Retry.MaxAttempts, Delay: cfg.RetryDelay()}
		if opts.attempts > 0 {
			policy.MaxAttempts = opts.attempts
		}
		if opts.delay > 0 {
			policy.Delay = opts.delay
		}
		driverOpts = append(driverOpts, arquery.WithPolicy(policy))
	}
	driver := arquery.New(cfg, logger, driverOpts...)

	progressOut := stdout
	if opts.json {
		progressOut = io.Discard
	}
	printer := newProgressPrinter(progressOut, stderr, driver.Endpoint())
	logger.Debug("starting run",
		logging.String(logging.FieldRunID, runID),
		logging.String("endpoint", driver.Endpoint()),
		logging.Int("agents", len(ids)),
	)
	summary := driver.Run(runCtx, ids, printer)

	if cfg.History.Enabled {
		if err := recordHistory(runCtx, cfg, summary, driver.Endpoint()); err != nil {
			logging.WarnWithContext(logger, "history not recorded", "history_write_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check history.path permissions"),
				logging.String(logging.FieldImpact, "this run will be missing from `archeck history`"),
			)
		}
	}

	switch {
	case opts.json:
		if err := writeJSON(cmd, newSummaryJSON(summary, driver.Endpoint())); err != nil {
			return err
		}
	case !opts.noTable:
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, renderSummaryTable(summary))
	}

	if err := runCtx.Err(); err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d %w", summary.Failed, len(summary.Results), errAgentsFailed)
	}
	return nil
}

func collectIDs(cmd *cobra.Command, args []string, file string, width int) ([]string, error) {
	if len(args) > 0 {
		if file != "" {
			return nil, errors.New("pass agent IDs as arguments or with --file, not both")
		}
		return agentids.FromArgs(args, width), nil
	}
	if file != "" {
		path, err := config.ExpandPath(file)
		if err != nil {
			return nil, err
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open agent list: %w", err)
		}
		defer f.Close()
		return agentids.Read(f, width)
	}
	return agentids.Read(cmd.InOrStdin(), width)
}

func recordHistory(ctx context.Context, cfg *config.Config, summary arquery.Summary, endpoint string) error {
	// The run itself may have been cancelled; the record should still land.
	ctx = context.WithoutCancel(ctx)
	store, err := history.Open(ctx, cfg.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()
	run, outcomes := history.FromSummary(summary, endpoint)
	return store.Record(ctx, run, outcomes)
}

func commandCtx(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
