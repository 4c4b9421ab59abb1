// Package ledger implements the customer credit ledger.
//
// Every balance change is an appended CreditTransaction. The customer's
// credit_balance column is a cached projection of the ledger sum, written in
// the same store transaction as the row that changes it. Read-compute-write
// for one customer is serialized by an in-process lock plus the SQLite
// write transaction.
//
// Invariants, checked by CheckHistory:
//
//	balance == Σ amount
//	txs[i].BalanceAfter == Σ txs[0..i].Amount
//	CREDIT ⇒ amount > 0; PAYMENT ⇒ amount < 0 and |amount| ≤ prior balance
package ledger
