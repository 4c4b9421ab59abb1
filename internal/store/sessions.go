package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/roach88/offpos/internal/model"
)

// SessionGeneration returns the tenant's session generation. It starts at 0
// and grows by one on every EndSession, in any process sharing the database.
func (s *Store) SessionGeneration(ctx context.Context, restaurantID string) (int64, error) {
	const op = "store.session_generation"
	if err := model.RequireTenant(op, restaurantID); err != nil {
		return 0, err
	}
	return sessionGeneration(ctx, s.db, op, restaurantID)
}

// EndSession bumps the tenant's session generation and deletes every record
// of the tenant in one transaction. Returns the new generation.
//
// Writes that were started under an older generation and check it with
// requireGeneration fail with SESSION_ENDED from then on.
func (s *Store) EndSession(ctx context.Context, restaurantID string) (int64, error) {
	const op = "store.end_session"
	if err := model.RequireTenant(op, restaurantID); err != nil {
		return 0, err
	}

	var gen int64
	err := s.inTx(ctx, op, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sessions (restaurant_id, generation) VALUES (?, 1)
			ON CONFLICT(restaurant_id) DO UPDATE SET generation = generation + 1
		`, restaurantID); err != nil {
			return fmt.Errorf("bump generation: %w", err)
		}
		g, err := sessionGeneration(ctx, tx, op, restaurantID)
		if err != nil {
			return err
		}
		gen = g
		return clearRestaurant(ctx, tx, restaurantID)
	})
	if err != nil {
		return 0, err
	}
	return gen, nil
}

func sessionGeneration(ctx context.Context, q sqlx.QueryerContext, op, restaurantID string) (int64, error) {
	var gen int64
	err := sqlx.GetContext(ctx, q, &gen,
		`SELECT generation FROM sessions WHERE restaurant_id = ?`, restaurantID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, storeErr(op, err)
	}
	return gen, nil
}

// requireGeneration fails with SESSION_ENDED when the tenant's generation
// moved past gen. Called inside the write transaction it guards.
func requireGeneration(ctx context.Context, tx *sqlx.Tx, op, restaurantID string, gen int64) error {
	current, err := sessionGeneration(ctx, tx, op, restaurantID)
	if err != nil {
		return err
	}
	if current != gen {
		return model.NewError(model.CodeSessionEnded, op,
			"session for restaurant %s ended (generation %d, now %d)", restaurantID, gen, current)
	}
	return nil
}
