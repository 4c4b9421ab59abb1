package store

import (
	"context"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/offpos/internal/model"
)

// ExpenseFilter narrows ListExpenses by the expense date string.
// Bounds are inclusive YYYY-MM-DD strings; empty means unbounded.
type ExpenseFilter struct {
	From string
	To   string
}

// UpsertExpense inserts or fully replaces an expense.
func (s *Store) UpsertExpense(ctx context.Context, e model.Expense) error {
	const op = "store.upsert_expense"
	if err := model.RequireTenant(op, e.RestaurantID); err != nil {
		return err
	}
	if err := e.Validate(); err != nil {
		return err
	}
	e.Category = norm.NFC.String(e.Category)

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO expenses (restaurant_id, id, category, amount, date, vendor_name, description)
		VALUES (:restaurant_id, :id, :category, :amount, :date, :vendor_name, :description)
		ON CONFLICT(restaurant_id, id) DO UPDATE SET
			category    = excluded.category,
			amount      = excluded.amount,
			date        = excluded.date,
			vendor_name = excluded.vendor_name,
			description = excluded.description
	`, e)
	return storeErr(op, err)
}

// GetExpense retrieves an expense by id.
func (s *Store) GetExpense(ctx context.Context, restaurantID, id string) (model.Expense, error) {
	const op = "store.get_expense"
	if err := model.RequireTenant(op, restaurantID); err != nil {
		return model.Expense{}, err
	}

	var e model.Expense
	err := s.db.GetContext(ctx, &e, `
		SELECT restaurant_id, id, category, amount, date, vendor_name, description
		FROM expenses
		WHERE restaurant_id = ? AND id = ?
	`, restaurantID, id)
	if err != nil {
		return model.Expense{}, storeErr(op, err)
	}
	return e, nil
}

// ListExpenses returns expenses ordered by date, then insertion order.
func (s *Store) ListExpenses(ctx context.Context, restaurantID string, f ExpenseFilter) ([]model.Expense, error) {
	const op = "store.list_expenses"
	if err := model.RequireTenant(op, restaurantID); err != nil {
		return nil, err
	}

	query := `
		SELECT restaurant_id, id, category, amount, date, vendor_name, description
		FROM expenses
		WHERE restaurant_id = ?`
	args := []any{restaurantID}
	if f.From != "" {
		query += ` AND date >= ?`
		args = append(args, f.From)
	}
	if f.To != "" {
		query += ` AND date <= ?`
		args = append(args, f.To)
	}
	query += ` ORDER BY date ASC, rowid ASC`

	expenses := []model.Expense{}
	if err := s.db.SelectContext(ctx, &expenses, query, args...); err != nil {
		return nil, storeErr(op, err)
	}
	return expenses, nil
}

// DeleteExpense removes an expense.
func (s *Store) DeleteExpense(ctx context.Context, restaurantID, id string) error {
	const op = "store.delete_expense"
	if err := model.RequireTenant(op, restaurantID); err != nil {
		return err
	}
	return s.deleteOne(ctx, op, "expenses", restaurantID, id)
}
