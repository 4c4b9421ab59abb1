package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/offpos/internal/model"
)

// NewCustomerCommand creates the customer command group.
func NewCustomerCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "customer",
		Short: "Manage credit customers",
	}
	cmd.AddCommand(newCustomerAddCommand(rootOpts))
	cmd.AddCommand(newCustomerListCommand(rootOpts))
	cmd.AddCommand(newCustomerDeleteCommand(rootOpts))
	return cmd
}

func newCustomerAddCommand(rootOpts *RootOptions) *cobra.Command {
	var mobile string
	cmd := &cobra.Command{
		Use:   "add <customer-id> <name>",
		Short: "Create or rename a customer",
		Long: `Create a customer, or update the name and mobile of an existing one.
The balance is never changed here; use the credit commands.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, func(a *app, restaurantID string) error {
				c := model.Customer{
					ID:           args[0],
					RestaurantID: restaurantID,
					Name:         args[1],
					Mobile:       mobile,
					CreatedAt:    time.Now().UTC(),
				}
				if err := a.store.UpsertCustomer(cmd.Context(), c); err != nil {
					return operationError("add customer failed", err)
				}
				saved, err := a.store.GetCustomer(cmd.Context(), restaurantID, c.ID)
				if err != nil {
					return operationError("add customer failed", err)
				}
				f := rootOpts.formatter(cmd)
				return f.Result(saved, func() {
					f.Printf("Saved customer %s (%s), balance %s\n",
						saved.ID, saved.Name, saved.CreditBalance.StringFixed(2))
				})
			})
		},
	}
	cmd.Flags().StringVarP(&mobile, "mobile", "m", "", "mobile number")
	return cmd
}

func newCustomerListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List customers with their balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, func(a *app, restaurantID string) error {
				customers, err := a.store.ListCustomers(cmd.Context(), restaurantID)
				if err != nil {
					return operationError("list customers failed", err)
				}
				f := rootOpts.formatter(cmd)
				return f.Result(map[string]any{"customers": customers}, func() {
					f.Printf("%d customers\n", len(customers))
					for _, c := range customers {
						f.Printf("%-12s  %-24s  %-12s  %10s\n", c.ID, c.Name, c.Mobile, c.CreditBalance.StringFixed(2))
					}
				})
			})
		},
	}
}

func newCustomerDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <customer-id>",
		Short: "Delete a customer and their ledger",
		Long: `Delete a customer together with every ledger transaction.

With ledger.delete_policy "warn" a non-zero balance is discarded and
reported. With "block" the delete fails with OUTSTANDING_BALANCE.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, func(a *app, restaurantID string) error {
				res, err := a.ledger.DeleteCustomer(cmd.Context(), restaurantID, args[0])
				if err != nil {
					return operationError("delete failed", err)
				}
				f := rootOpts.formatter(cmd)
				return f.Result(res, func() {
					f.Printf("Deleted customer %s\n", res.CustomerID)
					if res.Warning {
						f.Printf("Warning: discarded outstanding balance %s\n", res.OutstandingBalance.StringFixed(2))
					}
				})
			})
		},
	}
}
