package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/offpos/internal/model"
)

const customerColumns = `restaurant_id, id, name, mobile, credit_balance, created_at`

// UpsertCustomer inserts or updates a customer's profile fields.
//
// credit_balance is a projection of the credit ledger: a new customer starts
// at 0 regardless of c.CreditBalance, and an existing customer's balance is
// never touched here. Only Tx.SetCustomerBalance writes it.
func (s *Store) UpsertCustomer(ctx context.Context, c model.Customer) error {
	const op = "store.upsert_customer"
	if err := model.RequireTenant(op, c.RestaurantID); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}
	c.Name = norm.NFC.String(c.Name)
	c.CreatedAt = c.CreatedAt.UTC()
	c.CreditBalance = decimal.Zero

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO customers (restaurant_id, id, name, mobile, credit_balance, created_at)
		VALUES (:restaurant_id, :id, :name, :mobile, :credit_balance, :created_at)
		ON CONFLICT(restaurant_id, id) DO UPDATE SET
			name   = excluded.name,
			mobile = excluded.mobile
	`, c)
	return storeErr(op, err)
}

// GetCustomer retrieves a customer by id.
func (s *Store) GetCustomer(ctx context.Context, restaurantID, id string) (model.Customer, error) {
	const op = "store.get_customer"
	if err := model.RequireTenant(op, restaurantID); err != nil {
		return model.Customer{}, err
	}
	return getCustomer(ctx, s.db, op, restaurantID, id)
}

// ListCustomers returns the tenant's customers ordered by name, id.
func (s *Store) ListCustomers(ctx context.Context, restaurantID string) ([]model.Customer, error) {
	const op = "store.list_customers"
	if err := model.RequireTenant(op, restaurantID); err != nil {
		return nil, err
	}

	customers := []model.Customer{}
	if err := s.db.SelectContext(ctx, &customers, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE restaurant_id = ?
		ORDER BY name ASC, id COLLATE BINARY ASC
	`, restaurantID); err != nil {
		return nil, storeErr(op, err)
	}
	return customers, nil
}

// DeleteCustomer removes a customer and its whole ledger in one transaction.
// Balance policy is the ledger's concern, not the store's.
func (s *Store) DeleteCustomer(ctx context.Context, restaurantID, id string) error {
	const op = "store.delete_customer"
	if err := model.RequireTenant(op, restaurantID); err != nil {
		return err
	}

	var removed int64
	err := s.inTx(ctx, op, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM credit_transactions WHERE restaurant_id = ? AND customer_id = ?`, restaurantID, id); err != nil {
			return fmt.Errorf("delete ledger: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			`DELETE FROM customers WHERE restaurant_id = ? AND id = ?`, restaurantID, id)
		if err != nil {
			return fmt.Errorf("delete customer: %w", err)
		}
		removed, err = res.RowsAffected()
		if err != nil {
			return err
		}
		if removed == 0 {
			return notFound(op, restaurantID, id)
		}
		return nil
	})
	return err
}

// ListCreditTransactions returns a customer's ledger in append order
// (seq ASC). balance_after is only meaningful in that order.
func (s *Store) ListCreditTransactions(ctx context.Context, restaurantID, customerID string) ([]model.CreditTransaction, error) {
	const op = "store.list_credit_transactions"
	if err := model.RequireTenant(op, restaurantID); err != nil {
		return nil, err
	}
	return listCreditTransactions(ctx, s.db, op, restaurantID, customerID)
}

func getCustomer(ctx context.Context, q sqlx.QueryerContext, op, restaurantID, id string) (model.Customer, error) {
	var c model.Customer
	err := sqlx.GetContext(ctx, q, &c, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE restaurant_id = ? AND id = ?
	`, restaurantID, id)
	if err != nil {
		return model.Customer{}, storeErr(op, err)
	}
	return c, nil
}

func listCreditTransactions(ctx context.Context, q sqlx.QueryerContext, op, restaurantID, customerID string) ([]model.CreditTransaction, error) {
	txs := []model.CreditTransaction{}
	err := sqlx.SelectContext(ctx, q, &txs, `
		SELECT seq, id, restaurant_id, customer_id, amount, type, description, balance_after, created_at
		FROM credit_transactions
		WHERE restaurant_id = ? AND customer_id = ?
		ORDER BY seq ASC
	`, restaurantID, customerID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	return txs, nil
}
