package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vantagefeed/postsync/internal/models"
)

func newAccountsCommand(app *appContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List connected accounts and their sync cursors",
		RunE: func(cmd *cobra.Command, args []string) error {
			instance, err := app.build()
			if err != nil {
				return err
			}
			defer instance.Close()

			accounts, err := instance.store.Accounts(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, accounts)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPLATFORM\tHANDLE\tCURSOR")
			for _, acc := range accounts {
				cursor := "-"
				if !acc.SyncCursor.IsZero() {
					cursor = acc.SyncCursor.Format(time.RFC3339)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", acc.ID, acc.Platform, acc.Handle, cursor)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit accounts as JSON")

	cmd.AddCommand(newAccountsAddCommand(app))
	return cmd
}

func newAccountsAddCommand(app *appContext) *cobra.Command {
	var acc models.Account

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Connect an account or update its credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch acc.Platform {
			case models.PlatformTwitter:
				if acc.Credentials.APIKey == "" || acc.Credentials.APIHost == "" {
					return fmt.Errorf("twitter accounts need --api-key and --api-host")
				}
			case models.PlatformThreads:
				if acc.Credentials.AccessToken == "" || acc.UserID == "" {
					return fmt.Errorf("threads accounts need --access-token and --user-id")
				}
			default:
				return fmt.Errorf("unsupported platform %q", acc.Platform)
			}
			if acc.ID == "" {
				acc.ID = fmt.Sprintf("%s-%s", acc.Platform, acc.Handle)
			}

			instance, err := app.build()
			if err != nil {
				return err
			}
			defer instance.Close()

			if err := instance.store.UpsertAccount(cmd.Context(), acc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "account %s saved\n", acc.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&acc.ID, "id", "", "Account ID (default: {platform}-{handle})")
	cmd.Flags().StringVar((*string)(&acc.Platform), "platform", "", "Platform: twitter or threads")
	cmd.Flags().StringVar(&acc.Handle, "handle", "", "Account handle")
	cmd.Flags().StringVar(&acc.DisplayName, "display-name", "", "Display name")
	cmd.Flags().StringVar(&acc.UserID, "user-id", "", "Platform-native user ID")
	cmd.Flags().StringVar(&acc.Credentials.APIKey, "api-key", "", "Gateway API key (twitter)")
	cmd.Flags().StringVar(&acc.Credentials.APIHost, "api-host", "", "Gateway API host (twitter)")
	cmd.Flags().StringVar(&acc.Credentials.AccessToken, "access-token", "", "Graph API access token (threads)")
	_ = cmd.MarkFlagRequired("platform")
	_ = cmd.MarkFlagRequired("handle")

	return cmd
}
