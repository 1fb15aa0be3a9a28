package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mranv/agentARChecker/internal/agentids"
	"github.com/mranv/agentARChecker/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var agent string
	var limit int
	var runs bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded query outcomes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return errors.New("history is disabled (set history.enabled = true)")
			}
			out := cmd.OutOrStdout()
			if _, err := os.Stat(cfg.History.Path); errors.Is(err, os.ErrNotExist) {
				if asJSON {
					return writeJSON(cmd, []any{})
				}
				fmt.Fprintln(out, "No runs recorded yet")
				return nil
			}

			store, err := history.Open(commandCtx(cmd), cfg.History.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			if runs {
				list, err := store.Runs(commandCtx(cmd), limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, newRunsJSON(list))
				}
				if len(list) == 0 {
					fmt.Fprintln(out, "No runs recorded yet")
					return nil
				}
				fmt.Fprintln(out, renderRunTable(list))
				return nil
			}

			filter := history.Filter{Limit: limit}
			if agent != "" {
				filter.Agent = agentids.Normalize(agent, cfg.Agents.IDWidth)
			}
			outcomes, err := store.Recent(commandCtx(cmd), filter)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, newOutcomesJSON(outcomes))
			}
			if len(outcomes) == 0 {
				fmt.Fprintln(out, "No outcomes recorded")
				return nil
			}
			fmt.Fprintln(out, renderOutcomeTable(outcomes))
			return nil
		},
	}

	cmd.Flags().StringVar(&agent, "agent", "", "Only show outcomes for this agent ID")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of rows")
	cmd.Flags().BoolVar(&runs, "runs", false, "List runs instead of per-agent outcomes")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}
