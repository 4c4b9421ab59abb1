package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/offpos/internal/model"
)

// SyncOutput is the JSON payload of the sync command.
type SyncOutput struct {
	Unread      int    `json:"unread"`
	Total       int    `json:"total"`
	Inserted    int    `json:"inserted"`
	Updated     int    `json:"updated"`
	Delivered   int    `json:"delivered"`
	RemoteError string `json:"remote_error,omitempty"`
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reconcile notifications with the remote service",
		Long: `Fetch the restaurant's notification feed, merge it into the local store
and deliver new unread notifications once.

An unreachable remote is not an error: the local notifications are kept
and the remote error is reported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, func(a *app, restaurantID string) error {
				res, err := a.notify.Sync(cmd.Context(), restaurantID)
				if err != nil {
					return operationError("sync failed", err)
				}
				out := SyncOutput{
					Unread:    res.Unread,
					Total:     len(res.Notifications),
					Inserted:  res.Inserted,
					Updated:   res.Updated,
					Delivered: res.Delivered,
				}
				if res.RemoteErr != nil {
					out.RemoteError = res.RemoteErr.Error()
				}

				f := rootOpts.formatter(cmd)
				return f.Result(out, func() {
					if out.RemoteError != "" {
						f.Printf("Remote unavailable, showing local notifications: %s\n", out.RemoteError)
					}
					f.Printf("%d notifications, %d unread (%d new, %d updated, %d delivered)\n",
						out.Total, out.Unread, out.Inserted, out.Updated, out.Delivered)
				})
			})
		},
	}
}

// NewNotificationsCommand creates the notifications command group.
func NewNotificationsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notif"},
		Short:   "List and acknowledge local notifications",
	}
	cmd.AddCommand(newNotificationsListCommand(rootOpts))
	cmd.AddCommand(newNotificationsReadCommand(rootOpts))
	cmd.AddCommand(newNotificationsReadAllCommand(rootOpts))
	return cmd
}

// NotificationList is the JSON payload of notifications list.
type NotificationList struct {
	Unread        int                  `json:"unread"`
	Notifications []model.Notification `json:"notifications"`
}

func newNotificationsListCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the newest notifications and the unread count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, func(a *app, restaurantID string) error {
				list, unread, err := a.notify.Preview(cmd.Context(), restaurantID, limit)
				if err != nil {
					return operationError("list failed", err)
				}
				f := rootOpts.formatter(cmd)
				return f.Result(NotificationList{Unread: unread, Notifications: list}, func() {
					f.Printf("%d unread\n", unread)
					for _, n := range list {
						mark := " "
						if !n.IsRead {
							mark = "*"
						}
						f.Printf("%s %s  %-7s  %s: %s  [%s]\n", mark,
							n.CreatedAt.Format("2006-01-02 15:04"), n.Type, n.Title, n.Message, n.ID)
					}
				})
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of notifications to show (-1 for all)")
	return cmd
}

func newNotificationsReadCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "read <id>",
		Short: "Mark one notification read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, func(a *app, restaurantID string) error {
				changed, err := a.notify.MarkRead(cmd.Context(), restaurantID, args[0])
				if err != nil {
					return operationError("mark read failed", err)
				}
				f := rootOpts.formatter(cmd)
				return f.Result(map[string]bool{"changed": changed}, func() {
					if changed {
						f.Printf("Marked %s read\n", args[0])
					} else {
						f.Printf("%s was already read\n", args[0])
					}
				})
			})
		},
	}
}

func newNotificationsReadAllCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "read-all",
		Short: "Mark every unread notification read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, func(a *app, restaurantID string) error {
				ids, err := a.notify.MarkAllRead(cmd.Context(), restaurantID)
				if err != nil {
					return operationError("mark all read failed", err)
				}
				f := rootOpts.formatter(cmd)
				return f.Result(map[string][]string{"marked": ids}, func() {
					f.Printf("Marked %d notifications read\n", len(ids))
				})
			})
		},
	}
}
