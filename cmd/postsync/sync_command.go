package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vantagefeed/postsync/internal/syncer"
)

func newSyncCommand(app *appContext) *cobra.Command {
	var (
		accountsFlag string
		lookbackDays int
		maxPosts     int
		jsonOut      bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch, score, and store new posts for connected accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			instance, err := app.build()
			if err != nil {
				return err
			}
			defer instance.Close()

			opts := syncer.Options{
				LookbackDays: lookbackDays,
				MaxPosts:     maxPosts,
			}
			if accountsFlag != "" {
				for _, id := range strings.Split(accountsFlag, ",") {
					if id = strings.TrimSpace(id); id != "" {
						opts.AccountIDs = append(opts.AccountIDs, id)
					}
				}
			}

			results, err := instance.service.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, results)
			}
			renderResults(cmd, results)

			for _, res := range results {
				if res.Err != "" {
					return fmt.Errorf("%d of %d accounts failed", countFailed(results), len(results))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&accountsFlag, "accounts", "", "Comma-separated account IDs (default: all)")
	cmd.Flags().IntVar(&lookbackDays, "lookback-days", 0, "Backfill window in days (default: incremental)")
	cmd.Flags().IntVar(&maxPosts, "max-posts", 0, "Per-account fetch cap (default: platform default)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit results as JSON, including per-account traces")

	return cmd
}

func renderResults(cmd *cobra.Command, results []syncer.Result) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT\tPLATFORM\tFETCHED\tSTORED\tSTATUS")
	for _, res := range results {
		status := "ok"
		if res.Err != "" {
			status = res.Err
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
			res.AccountID, res.Platform, res.Fetched, res.Stored, status)
	}
	w.Flush()
}

func countFailed(results []syncer.Result) int {
	n := 0
	for _, res := range results {
		if res.Err != "" {
			n++
		}
	}
	return n
}
