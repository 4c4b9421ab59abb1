package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/offpos/internal/model"
)

// OrderFilter narrows ListOrders.
type OrderFilter struct {
	// Status restricts the list to one order status; empty means all.
	Status string

	// From and To bound created_at to [From, To). A zero value leaves that
	// side open.
	From time.Time
	To   time.Time
}

// UpsertOrder inserts or fully replaces an order together with its items.
// Existing items of the order are replaced in the same transaction.
// Items without an id get "<order id>-<n>".
func (s *Store) UpsertOrder(ctx context.Context, o model.Order) error {
	const op = "store.upsert_order"
	if err := model.RequireTenant(op, o.RestaurantID); err != nil {
		return err
	}
	if err := o.Validate(); err != nil {
		return err
	}
	o.CreatedAt = o.CreatedAt.UTC()

	return s.inTx(ctx, op, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO orders
			(restaurant_id, id, order_number, total_amount, tax_amount, status,
			 payment_status, payment_method, customer_id, created_at)
			VALUES
			(:restaurant_id, :id, :order_number, :total_amount, :tax_amount, :status,
			 :payment_status, :payment_method, :customer_id, :created_at)
			ON CONFLICT(restaurant_id, id) DO UPDATE SET
				order_number   = excluded.order_number,
				total_amount   = excluded.total_amount,
				tax_amount     = excluded.tax_amount,
				status         = excluded.status,
				payment_status = excluded.payment_status,
				payment_method = excluded.payment_method,
				customer_id    = excluded.customer_id,
				created_at     = excluded.created_at
		`, o); err != nil {
			return fmt.Errorf("write order: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM order_items WHERE restaurant_id = ? AND order_id = ?`, o.RestaurantID, o.ID); err != nil {
			return fmt.Errorf("clear items: %w", err)
		}

		for i, item := range o.Items {
			item.OrderID = o.ID
			item.RestaurantID = o.RestaurantID
			item.Name = norm.NFC.String(item.Name)
			if item.ID == "" {
				item.ID = fmt.Sprintf("%s-%d", o.ID, i+1)
			}
			if _, err := tx.NamedExecContext(ctx, `
				INSERT INTO order_items (restaurant_id, id, order_id, name, quantity, total_price)
				VALUES (:restaurant_id, :id, :order_id, :name, :quantity, :total_price)
			`, item); err != nil {
				return fmt.Errorf("write item %d: %w", i, err)
			}
		}
		return nil
	})
}

// GetOrder retrieves an order with its items.
func (s *Store) GetOrder(ctx context.Context, restaurantID, id string) (model.Order, error) {
	const op = "store.get_order"
	if err := model.RequireTenant(op, restaurantID); err != nil {
		return model.Order{}, err
	}

	var o model.Order
	if err := s.db.GetContext(ctx, &o, `
		SELECT restaurant_id, id, order_number, total_amount, tax_amount, status,
		       payment_status, payment_method, customer_id, created_at
		FROM orders
		WHERE restaurant_id = ? AND id = ?
	`, restaurantID, id); err != nil {
		return model.Order{}, storeErr(op, err)
	}

	items, err := s.ListOrderItems(ctx, restaurantID, []string{id})
	if err != nil {
		return model.Order{}, err
	}
	o.Items = items
	return o, nil
}

// ListOrders returns the tenant's orders ordered by created_at, id.
// Items are not loaded; use ListOrderItems.
func (s *Store) ListOrders(ctx context.Context, restaurantID string, f OrderFilter) ([]model.Order, error) {
	const op = "store.list_orders"
	if err := model.RequireTenant(op, restaurantID); err != nil {
		return nil, err
	}

	query := `
		SELECT restaurant_id, id, order_number, total_amount, tax_amount, status,
		       payment_status, payment_method, customer_id, created_at
		FROM orders
		WHERE restaurant_id = ?`
	args := []any{restaurantID}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	if !f.From.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		query += ` AND created_at < ?`
		args = append(args, f.To.UTC())
	}
	query += ` ORDER BY created_at ASC, id COLLATE BINARY ASC`

	orders := []model.Order{}
	if err := s.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, storeErr(op, err)
	}
	return orders, nil
}

// ListOrderItems returns the items of the given orders, grouped by order in
// insertion order.
func (s *Store) ListOrderItems(ctx context.Context, restaurantID string, orderIDs []string) ([]model.OrderItem, error) {
	const op = "store.list_order_items"
	if err := model.RequireTenant(op, restaurantID); err != nil {
		return nil, err
	}
	items := []model.OrderItem{}
	if len(orderIDs) == 0 {
		return items, nil
	}

	query, args, err := sqlx.In(`
		SELECT restaurant_id, id, order_id, name, quantity, total_price
		FROM order_items
		WHERE restaurant_id = ? AND order_id IN (?)
		ORDER BY order_id COLLATE BINARY ASC, rowid ASC
	`, restaurantID, orderIDs)
	if err != nil {
		return nil, storeErr(op, err)
	}
	query = s.db.Rebind(query)

	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, storeErr(op, err)
	}
	return items, nil
}

// DeleteOrder removes an order; its items cascade.
func (s *Store) DeleteOrder(ctx context.Context, restaurantID, id string) error {
	const op = "store.delete_order"
	if err := model.RequireTenant(op, restaurantID); err != nil {
		return err
	}
	return s.deleteOne(ctx, op, "orders", restaurantID, id)
}

// deleteOne removes a single tenant-scoped row and reports NOT_FOUND when
// nothing matched.
func (s *Store) deleteOne(ctx context.Context, op, table, restaurantID, id string) error {
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE restaurant_id = ? AND id = ?", table), restaurantID, id)
	if err != nil {
		return storeErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(op, err)
	}
	if n == 0 {
		return notFound(op, restaurantID, id)
	}
	return nil
}
