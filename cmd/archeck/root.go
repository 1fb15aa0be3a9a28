package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var socketFlag string
	var configFlag string
	var logLevelFlag string

	ctx := newCommandContext(&socketFlag, &configFlag, &logLevelFlag)
	queryOpts := &queryOptions{}

	rootCmd := &cobra.Command{
		Use:   "archeck",
		Short: "Query agents' active-response configuration from the remote daemon",
		Long: "archeck reads agent IDs from stdin (one per line) and asks the manager's remote\n" +
			"daemon for each agent's active-response configuration.\n\n" +
			"Use `archeck query` to pass IDs as arguments or from a file.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, ctx, nil, queryOpts)
		},
	}

	rootCmd.PersistentFlags().StringVar(&socketFlag, "socket", "", "Path to the remote daemon socket (overrides remote.socket_path)")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")
	queryOpts.bind(rootCmd)

	rootCmd.AddCommand(newQueryCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newPreflightCommand(ctx))

	return rootCmd
}
