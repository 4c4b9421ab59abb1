package cli

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/roach88/offpos/internal/model"
)

// NewCreditCommand creates the credit command group.
func NewCreditCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credit",
		Short: "Record and inspect customer credit",
		Long: `Record credit taken and repayments made by a customer.

Every change appends a ledger transaction and updates the cached balance in
the same database transaction. Payments larger than the balance are
rejected with EXCEEDS_BALANCE.`,
	}
	cmd.AddCommand(newLedgerEntryCommand(rootOpts, "add", "Record goods taken on credit", model.TxCredit))
	cmd.AddCommand(newLedgerEntryCommand(rootOpts, "pay", "Record a repayment", model.TxPayment))
	cmd.AddCommand(newCreditHistoryCommand(rootOpts))
	cmd.AddCommand(newCreditVerifyCommand(rootOpts))
	cmd.AddCommand(newCreditRecomputeCommand(rootOpts))
	return cmd
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, WrapExitError(ExitCommandError, "invalid amount",
			model.NewError(model.CodeInvalidAmount, "cli", "%q is not a number", s))
	}
	return d, nil
}

func newLedgerEntryCommand(rootOpts *RootOptions, use, short string, typ model.TransactionType) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   use + " <customer-id> <amount>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			return withApp(rootOpts, func(a *app, restaurantID string) error {
				var ct model.CreditTransaction
				if typ == model.TxPayment {
					ct, err = a.ledger.RecordPayment(cmd.Context(), restaurantID, args[0], amount, description)
				} else {
					ct, err = a.ledger.AddCredit(cmd.Context(), restaurantID, args[0], amount, description)
				}
				if err != nil {
					return operationError(use+" failed", err)
				}
				f := rootOpts.formatter(cmd)
				return f.Result(ct, func() {
					f.Printf("%s %s for %s, balance now %s\n",
						ct.Type, ct.Amount.Abs().StringFixed(2), args[0], ct.BalanceAfter.StringFixed(2))
				})
			})
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "free-text note stored with the transaction")
	return cmd
}

func newCreditHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <customer-id>",
		Short: "Show a customer's ledger, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, func(a *app, restaurantID string) error {
				txs, err := a.ledger.History(cmd.Context(), restaurantID, args[0])
				if err != nil {
					return operationError("history failed", err)
				}
				f := rootOpts.formatter(cmd)
				return f.Result(map[string]any{"transactions": txs}, func() {
					if len(txs) == 0 {
						f.Printf("No transactions for %s\n", args[0])
						return
					}
					for _, t := range txs {
						desc := ""
						if t.Description != nil {
							desc = *t.Description
						}
						f.Printf("%s  %-7s  %10s  %10s  %s\n", t.CreatedAt.Format("2006-01-02 15:04"),
							t.Type, t.Amount.StringFixed(2), t.BalanceAfter.StringFixed(2), desc)
					}
				})
			})
		},
	}
}

func newCreditVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <customer-id>",
		Short: "Check that the cached balance matches the ledger",
		Long: `Check the ledger invariants of a customer: the cached balance equals the
sum of transactions, and every transaction's balance_after follows from
the one before it. Exits 1 when an invariant is violated.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, func(a *app, restaurantID string) error {
				r, err := a.ledger.Verify(cmd.Context(), restaurantID, args[0])
				if err != nil {
					return operationError("verify failed", err)
				}
				f := rootOpts.formatter(cmd)
				if err := f.Result(r, func() {
					f.Printf("%s: balance %s, ledger sum %s over %d transactions\n", args[0],
						r.Balance.StringFixed(2), r.LedgerSum.StringFixed(2), r.Transactions)
					if r.OK() {
						f.Printf("✓ ledger consistent\n")
					} else {
						f.Printf("✗ %s\n", r.Violation)
					}
				}); err != nil {
					return err
				}
				if !r.OK() {
					return WrapExitError(ExitFailure, "ledger invariant violated", r.Violation)
				}
				return nil
			})
		},
	}
}

func newCreditRecomputeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recompute <customer-id>",
		Short: "Rewrite the cached balance from the ledger sum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, func(a *app, restaurantID string) error {
				sum, err := a.ledger.Recompute(cmd.Context(), restaurantID, args[0])
				if err != nil {
					return operationError("recompute failed", err)
				}
				f := rootOpts.formatter(cmd)
				return f.Result(map[string]string{"balance": sum.StringFixed(2)}, func() {
					f.Printf("%s: balance set to %s\n", args[0], sum.StringFixed(2))
				})
			})
		},
	}
}
