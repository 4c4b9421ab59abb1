package store

import (
	"context"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/offpos/internal/model"
)

// UpsertTax inserts or fully replaces a tax row.
func (s *Store) UpsertTax(ctx context.Context, t model.Tax) error {
	const op = "store.upsert_tax"
	if err := model.RequireTenant(op, t.RestaurantID); err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return err
	}
	t.Name = norm.NFC.String(t.Name)

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO taxes (restaurant_id, id, name, percentage)
		VALUES (:restaurant_id, :id, :name, :percentage)
		ON CONFLICT(restaurant_id, id) DO UPDATE SET
			name       = excluded.name,
			percentage = excluded.percentage
	`, t)
	return storeErr(op, err)
}

// GetTax retrieves a tax row by id.
func (s *Store) GetTax(ctx context.Context, restaurantID, id string) (model.Tax, error) {
	const op = "store.get_tax"
	if err := model.RequireTenant(op, restaurantID); err != nil {
		return model.Tax{}, err
	}

	var t model.Tax
	err := s.db.GetContext(ctx, &t, `
		SELECT restaurant_id, id, name, percentage
		FROM taxes
		WHERE restaurant_id = ? AND id = ?
	`, restaurantID, id)
	if err != nil {
		return model.Tax{}, storeErr(op, err)
	}
	return t, nil
}

// ListTaxes returns the tenant's tax rows in configuration (insertion) order.
func (s *Store) ListTaxes(ctx context.Context, restaurantID string) ([]model.Tax, error) {
	const op = "store.list_taxes"
	if err := model.RequireTenant(op, restaurantID); err != nil {
		return nil, err
	}

	taxes := []model.Tax{}
	if err := s.db.SelectContext(ctx, &taxes, `
		SELECT restaurant_id, id, name, percentage
		FROM taxes
		WHERE restaurant_id = ?
		ORDER BY rowid ASC
	`, restaurantID); err != nil {
		return nil, storeErr(op, err)
	}
	return taxes, nil
}

// DeleteTax removes a tax row.
func (s *Store) DeleteTax(ctx context.Context, restaurantID, id string) error {
	const op = "store.delete_tax"
	if err := model.RequireTenant(op, restaurantID); err != nil {
		return err
	}
	return s.deleteOne(ctx, op, "taxes", restaurantID, id)
}
