package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/roach88/offpos/internal/model"
)

// Tx is the single commit unit handed to WithTx callbacks.
//
// Everything written through a Tx commits together or not at all. It is the
// only path that appends ledger rows or writes customers.credit_balance.
type Tx struct {
	tx *sqlx.Tx
}

// WithTx runs fn inside one SQLite transaction.
//
// The transaction is committed if fn returns nil and rolled back otherwise;
// fn's error is returned unchanged when it is already a model error, so
// validation failures surface with their own code.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	return s.inTx(ctx, "store.with_tx", func(tx *sqlx.Tx) error {
		return fn(&Tx{tx: tx})
	})
}

// GetCustomer reads a customer inside the transaction.
func (t *Tx) GetCustomer(ctx context.Context, restaurantID, id string) (model.Customer, error) {
	const op = "store.tx.get_customer"
	if err := model.RequireTenant(op, restaurantID); err != nil {
		return model.Customer{}, err
	}
	return getCustomer(ctx, t.tx, op, restaurantID, id)
}

// ListCreditTransactions reads a customer's ledger inside the transaction.
func (t *Tx) ListCreditTransactions(ctx context.Context, restaurantID, customerID string) ([]model.CreditTransaction, error) {
	const op = "store.tx.list_credit_transactions"
	if err := model.RequireTenant(op, restaurantID); err != nil {
		return nil, err
	}
	return listCreditTransactions(ctx, t.tx, op, restaurantID, customerID)
}

// LastCreditTransaction returns the customer's most recently appended ledger
// row. ok is false when the ledger is empty.
func (t *Tx) LastCreditTransaction(ctx context.Context, restaurantID, customerID string) (ct model.CreditTransaction, ok bool, err error) {
	const op = "store.tx.last_credit_transaction"
	if err := model.RequireTenant(op, restaurantID); err != nil {
		return model.CreditTransaction{}, false, err
	}
	err = sqlx.GetContext(ctx, t.tx, &ct, `
		SELECT seq, id, restaurant_id, customer_id, amount, type, description, balance_after, created_at
		FROM credit_transactions
		WHERE restaurant_id = ? AND customer_id = ?
		ORDER BY seq DESC
		LIMIT 1
	`, restaurantID, customerID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CreditTransaction{}, false, nil
	}
	if err != nil {
		return model.CreditTransaction{}, false, storeErr(op, err)
	}
	return ct, true, nil
}

// InsertCreditTransaction appends a ledger row and returns its seq.
// The row is validated against prior, the balance immediately before it.
func (t *Tx) InsertCreditTransaction(ctx context.Context, ct model.CreditTransaction, prior decimal.Decimal) (int64, error) {
	const op = "store.tx.insert_credit_transaction"
	if err := model.RequireTenant(op, ct.RestaurantID); err != nil {
		return 0, err
	}
	if err := ct.Validate(prior); err != nil {
		return 0, err
	}
	ct.CreatedAt = ct.CreatedAt.UTC()

	res, err := t.tx.NamedExecContext(ctx, `
		INSERT INTO credit_transactions
		(id, restaurant_id, customer_id, amount, type, description, balance_after, created_at)
		VALUES (:id, :restaurant_id, :customer_id, :amount, :type, :description, :balance_after, :created_at)
	`, ct)
	if err != nil {
		return 0, storeErr(op, err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, storeErr(op, fmt.Errorf("last insert id: %w", err))
	}
	return seq, nil
}

// SetCustomerBalance writes the cached ledger projection.
func (t *Tx) SetCustomerBalance(ctx context.Context, restaurantID, customerID string, balance decimal.Decimal) error {
	const op = "store.tx.set_customer_balance"
	if err := model.RequireTenant(op, restaurantID); err != nil {
		return err
	}

	res, err := t.tx.ExecContext(ctx, `
		UPDATE customers SET credit_balance = ?
		WHERE restaurant_id = ? AND id = ?
	`, balance.String(), restaurantID, customerID)
	if err != nil {
		return storeErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(op, err)
	}
	if n == 0 {
		return notFound(op, restaurantID, customerID)
	}
	return nil
}
