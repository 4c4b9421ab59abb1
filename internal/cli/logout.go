package cli

import (
	"github.com/spf13/cobra"
)

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "End the session and delete the restaurant's local data",
		Long: `End the restaurant's session and delete every local record of it:
notifications, deliveries, orders, expenses, taxes, customers and ledgers.
Other restaurants in the same database are untouched. A running serve
process sharing the database drops its in-flight sync and stops the
restaurant's scheduler.

Requires --yes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return NewExitError(ExitCommandError, "logout deletes local data; pass --yes to confirm")
			}
			return withApp(rootOpts, func(a *app, restaurantID string) error {
				if err := a.notify.Logout(cmd.Context(), restaurantID); err != nil {
					return operationError("logout failed", err)
				}
				f := rootOpts.formatter(cmd)
				return f.Result(map[string]string{"cleared": restaurantID}, func() {
					f.Printf("Cleared local data for %s\n", restaurantID)
				})
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}
