package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/roach88/offpos/internal/model"
)

// Violation describes the first broken ledger invariant.
type Violation struct {
	// Index is the offending transaction, or -1 when the cached balance
	// disagrees with an otherwise valid ledger.
	Index int `json:"index"`

	Reason string `json:"reason"`
}

// Error implements the error interface.
func (v *Violation) Error() string {
	if v.Index < 0 {
		return "ledger: " + v.Reason
	}
	return fmt.Sprintf("ledger: transaction %d: %s", v.Index, v.Reason)
}

// CheckHistory verifies txs (in append order) against the cached balance.
// Returns nil when every invariant holds.
func CheckHistory(balance decimal.Decimal, txs []model.CreditTransaction) *Violation {
	running := decimal.Zero
	for i, tx := range txs {
		if err := tx.Validate(running); err != nil {
			reason := err.Error()
			var me *model.Error
			if errors.As(err, &me) {
				reason = me.Message
			}
			return &Violation{Index: i, Reason: reason}
		}
		running = running.Add(tx.Amount)
	}
	if !balance.Equal(running) {
		return &Violation{
			Index:  -1,
			Reason: fmt.Sprintf("cached balance %s does not equal ledger sum %s", balance, running),
		}
	}
	return nil
}

// Sum returns Σ amount over txs.
func Sum(txs []model.CreditTransaction) decimal.Decimal {
	sum := decimal.Zero
	for _, tx := range txs {
		sum = sum.Add(tx.Amount)
	}
	return sum
}
