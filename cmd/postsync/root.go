package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	app := newAppContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "postsync",
		Short:         "Incremental social post sync pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newSyncCommand(app))
	rootCmd.AddCommand(newAccountsCommand(app))

	return rootCmd
}
