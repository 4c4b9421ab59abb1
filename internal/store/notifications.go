package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/offpos/internal/model"
)

// NotificationFilter narrows ListNotifications.
type NotificationFilter struct {
	// UnreadOnly restricts the list to is_read = false.
	UnreadOnly bool

	// Limit caps the number of rows; 0 means no limit.
	Limit int
}

// UpsertNotification inserts or fully replaces a notification.
// Title and message are NFC normalized; created_at is stored in UTC.
func (s *Store) UpsertNotification(ctx context.Context, n model.Notification) error {
	const op = "store.upsert_notification"
	if err := model.RequireTenant(op, n.RestaurantID); err != nil {
		return err
	}
	if err := n.Validate(); err != nil {
		return err
	}
	return storeErr(op, upsertNotification(ctx, s.db, n))
}

// ApplyNotification writes a reconciled notification and, when claim is
// set, its delivery slot, in one transaction. The transaction fails with
// SESSION_ENDED when the tenant's session generation is no longer gen.
//
// claimed is true when the delivery slot was newly recorded; the caller
// triggers the external delivery after this returns.
func (s *Store) ApplyNotification(ctx context.Context, n model.Notification, gen int64, claim bool, at time.Time) (claimed bool, err error) {
	const op = "store.apply_notification"
	if err := model.RequireTenant(op, n.RestaurantID); err != nil {
		return false, err
	}
	if err := n.Validate(); err != nil {
		return false, err
	}

	err = s.inTx(ctx, op, func(tx *sqlx.Tx) error {
		if err := requireGeneration(ctx, tx, op, n.RestaurantID, gen); err != nil {
			return err
		}
		if err := upsertNotification(ctx, tx, n); err != nil {
			return err
		}
		if !claim {
			return nil
		}
		claimed, err = recordDelivery(ctx, tx, n.RestaurantID, n.ID, at)
		return err
	})
	if err != nil {
		return false, err
	}
	return claimed, nil
}

func upsertNotification(ctx context.Context, e sqlx.ExtContext, n model.Notification) error {
	n.Title = norm.NFC.String(n.Title)
	n.Message = norm.NFC.String(n.Message)
	n.CreatedAt = n.CreatedAt.UTC()

	_, err := sqlx.NamedExecContext(ctx, e, `
		INSERT INTO notifications (restaurant_id, id, title, message, type, is_read, created_at)
		VALUES (:restaurant_id, :id, :title, :message, :type, :is_read, :created_at)
		ON CONFLICT(restaurant_id, id) DO UPDATE SET
			title      = excluded.title,
			message    = excluded.message,
			type       = excluded.type,
			is_read    = excluded.is_read,
			created_at = excluded.created_at
	`, n)
	return err
}

// GetNotification retrieves a notification by id.
// Returns a NOT_FOUND error if the tenant has no such notification.
func (s *Store) GetNotification(ctx context.Context, restaurantID, id string) (model.Notification, error) {
	const op = "store.get_notification"
	if err := model.RequireTenant(op, restaurantID); err != nil {
		return model.Notification{}, err
	}

	var n model.Notification
	err := s.db.GetContext(ctx, &n, `
		SELECT restaurant_id, id, title, message, type, is_read, created_at
		FROM notifications
		WHERE restaurant_id = ? AND id = ?
	`, restaurantID, id)
	if err != nil {
		return model.Notification{}, storeErr(op, err)
	}
	return n, nil
}

// ListNotifications returns the tenant's notifications, newest first.
// Ties on created_at are broken by id for deterministic output.
func (s *Store) ListNotifications(ctx context.Context, restaurantID string, f NotificationFilter) ([]model.Notification, error) {
	const op = "store.list_notifications"
	if err := model.RequireTenant(op, restaurantID); err != nil {
		return nil, err
	}

	query := `
		SELECT restaurant_id, id, title, message, type, is_read, created_at
		FROM notifications
		WHERE restaurant_id = ?`
	args := []any{restaurantID}

	if f.UnreadOnly {
		query += ` AND is_read = 0`
	}
	query += ` ORDER BY created_at DESC, id COLLATE BINARY ASC`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	notifications := []model.Notification{}
	if err := s.db.SelectContext(ctx, &notifications, query, args...); err != nil {
		return nil, storeErr(op, err)
	}
	return notifications, nil
}

// DeleteNotification removes a notification and its delivery record.
func (s *Store) DeleteNotification(ctx context.Context, restaurantID, id string) error {
	const op = "store.delete_notification"
	if err := model.RequireTenant(op, restaurantID); err != nil {
		return err
	}

	var removed int64
	err := s.inTx(ctx, op, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM notifications WHERE restaurant_id = ? AND id = ?`, restaurantID, id)
		if err != nil {
			return err
		}
		if removed, err = res.RowsAffected(); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`DELETE FROM notification_deliveries WHERE restaurant_id = ? AND notification_id = ?`, restaurantID, id)
		return err
	})
	if err != nil {
		return err
	}
	if removed == 0 {
		return notFound(op, restaurantID, id)
	}
	return nil
}

// MarkNotificationRead sets is_read = true.
// Returns changed=false when the notification was already read, and a
// NOT_FOUND error when it does not exist.
func (s *Store) MarkNotificationRead(ctx context.Context, restaurantID, id string) (changed bool, err error) {
	const op = "store.mark_notification_read"
	if err := model.RequireTenant(op, restaurantID); err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = 1
		WHERE restaurant_id = ? AND id = ? AND is_read = 0
	`, restaurantID, id)
	if err != nil {
		return false, storeErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeErr(op, err)
	}
	if n > 0 {
		return true, nil
	}

	// No transition: either already read or missing
	if _, err := s.GetNotification(ctx, restaurantID, id); err != nil {
		return false, err
	}
	return false, nil
}

// MarkAllNotificationsRead marks every unread notification of the tenant read
// and returns the ids that transitioned.
func (s *Store) MarkAllNotificationsRead(ctx context.Context, restaurantID string) ([]string, error) {
	const op = "store.mark_all_notifications_read"
	if err := model.RequireTenant(op, restaurantID); err != nil {
		return nil, err
	}

	ids := []string{}
	err := s.inTx(ctx, op, func(tx *sqlx.Tx) error {
		if err := tx.SelectContext(ctx, &ids, `
			SELECT id FROM notifications
			WHERE restaurant_id = ? AND is_read = 0
			ORDER BY created_at DESC, id COLLATE BINARY ASC
		`, restaurantID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE notifications SET is_read = 1 WHERE restaurant_id = ? AND is_read = 0`, restaurantID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// RecordDelivery claims the delivery slot for a notification.
// Uses ON CONFLICT DO NOTHING; inserted=true means the caller is the first
// to deliver this notification and must trigger the external delivery.
func (s *Store) RecordDelivery(ctx context.Context, restaurantID, notificationID string, at time.Time) (inserted bool, err error) {
	const op = "store.record_delivery"
	if err := model.RequireTenant(op, restaurantID); err != nil {
		return false, err
	}
	inserted, err = recordDelivery(ctx, s.db, restaurantID, notificationID, at)
	if err != nil {
		return false, storeErr(op, err)
	}
	return inserted, nil
}

func recordDelivery(ctx context.Context, e sqlx.ExecerContext, restaurantID, notificationID string, at time.Time) (bool, error) {
	res, err := e.ExecContext(ctx, `
		INSERT INTO notification_deliveries (restaurant_id, notification_id, delivered_at)
		VALUES (?, ?, ?)
		ON CONFLICT(restaurant_id, notification_id) DO NOTHING
	`, restaurantID, notificationID, at.UTC())
	if err != nil {
		return false, fmt.Errorf("claim delivery: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim delivery: %w", err)
	}
	return n > 0, nil
}

// DeliveryCount returns how many notifications of the tenant were delivered.
func (s *Store) DeliveryCount(ctx context.Context, restaurantID string) (int, error) {
	const op = "store.delivery_count"
	if err := model.RequireTenant(op, restaurantID); err != nil {
		return 0, err
	}

	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM notification_deliveries WHERE restaurant_id = ?`, restaurantID)
	return count, storeErr(op, err)
}
